package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/lusya00/thesis-frontend-sub000/internal/api"
	"github.com/lusya00/thesis-frontend-sub000/internal/availability"
	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/config"
	"github.com/lusya00/thesis-frontend-sub000/internal/idgen/random"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
	"github.com/lusya00/thesis-frontend-sub000/internal/sameday"
	"github.com/lusya00/thesis-frontend-sub000/internal/schedule"
	"github.com/lusya00/thesis-frontend-sub000/internal/storage/memory"
	"github.com/lusya00/thesis-frontend-sub000/internal/storage/redis"
	"github.com/lusya00/thesis-frontend-sub000/internal/submission"
	"github.com/lusya00/thesis-frontend-sub000/internal/transport/web"
)

type draftStore interface {
	Save(ctx context.Context, draft *booking.BookingDraft) error
	Load(ctx context.Context, id string) (*booking.BookingDraft, error)
	Delete(ctx context.Context, id string) error
	Purge(ctx context.Context) int
}

func newDraftStore(ctx context.Context, l *logger.Logger, conf config.Drafts) (draftStore, func(), error) {
	if conf.Backend != config.DraftStoreRedis {
		return memory.New(memory.Config{L: l, TTL: conf.TTL}), func() {}, nil
	}

	store := redis.New(redis.Config{
		L:        l,
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
		TTL:      conf.TTL,
	})

	if err := store.Ping(ctx); err != nil {
		_ = store.Close()

		return nil, nil, err
	}

	return store, func() {
		if err := store.Close(); err != nil {
			l.LogErrorf("Failed to close draft store: %v", err.Error())
		}
	}, nil
}

func Run(l *logger.Logger, conf *config.Config) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	client, err := api.New(api.Config{L: l, BaseURL: conf.API.BaseURL, Timeout: conf.API.Timeout})
	if err != nil {
		return fmt.Errorf("init backend client: %w", err)
	}

	resolver := availability.New(l, client)
	evaluator := sameday.New(l, client, time.Now)

	drafts, closeDrafts, err := newDraftStore(ctx, l, conf.Drafts)
	if err != nil {
		return fmt.Errorf("init %s draft store: %w", conf.Drafts.Backend, err)
	}
	defer closeDrafts()

	l.LogInfo("Drafts are kept in %s for %v", conf.Drafts.Backend, conf.Drafts.TTL)

	if conf.Drafts.TTL > 0 {
		purge := schedule.Every(ctx, conf.Drafts.TTL, func(ctx context.Context) {
			if n := drafts.Purge(ctx); n > 0 {
				l.LogDebugf("Purged %d expired drafts", n)
			}
		})
		defer purge.Stop()
	}

	submitter := submission.New(submission.Config{
		L:               l,
		LoginPath:       conf.Booking.LoginPath,
		BookingPath:     conf.Booking.BookingPath,
		LookaheadDays:   conf.Booking.LookaheadDays,
		LookaheadStride: conf.Booking.LookaheadStride,
		MinNameLength:   conf.Booking.MinGuestNameLength,
		Now:             evaluator.Now,
	}, client, resolver, evaluator, drafts, random.New())

	errWriter := l.ErrorWriter()
	defer errWriter.Close()

	webConf := web.Conf{
		L:                 l,
		ServerLogger:      log.New(errWriter, "", 0),
		Host:              conf.Server.Host,
		Port:              conf.Server.Port,
		ReadHeaderTimeout: conf.Server.ReadHeaderTimeout,
		LivenessEndpoint:  conf.Server.LivenessEndpoint,
		SameDayPoll:       conf.Booking.SameDayPoll,
		CountdownTick:     conf.Booking.CountdownTick,
	}

	srv, err := web.New(ctx, webConf, web.Services{
		Resolver:  resolver,
		SameDay:   evaluator,
		Watcher:   evaluator,
		Rooms:     client,
		Submitter: submitter,
		Bookings:  client,
		Drafts:    drafts,
	})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	//nolint:contextcheck
	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Srv().Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}
	}()

	l.LogInfo("Application is running on %v:%v, backend %s", webConf.Host, webConf.Port, conf.API.BaseURL)

	if err := srv.Srv().ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		l.LogErrorf("Failed to run http server: %v", err.Error())

		cancel()
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}
