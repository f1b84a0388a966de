// Package web exposes the booking core as a JSON HTTP API for the frontend.
package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
	"github.com/lusya00/thesis-frontend-sub000/internal/sameday"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
	"github.com/lusya00/thesis-frontend-sub000/internal/submission"
)

var ErrPanic = errors.New("panic recovered")

type availabilityResolver interface {
	Resolve(ctx context.Context, sess *session.Session, roomID int, rng booking.DateRange) (*booking.AvailabilityResult, error)
}

type sameDayEvaluator interface {
	Today() booking.Date
	Now() time.Time
	EvaluateToday(ctx context.Context, sess *session.Session, roomID int, today booking.Date) (*booking.SameDayAvailability, error)
}

type roomLister interface {
	HomestayRooms(ctx context.Context, sess *session.Session, homestayID int) ([]booking.Room, error)
}

type bookingSubmitter interface {
	Submit(
		ctx context.Context,
		sess *session.Session,
		draft *booking.BookingDraft,
		statuses submission.StatusLookup,
	) (*booking.BookingConfirmation, error)
}

type bookingStatusUpdater interface {
	UpdateBookingStatus(ctx context.Context, sess *session.Session, bookingID int, status booking.Status) error
}

type sameDayWatcher interface {
	Watch(
		ctx context.Context,
		sess *session.Session,
		roomID int,
		today booking.Date,
		conf sameday.WatchConfig,
		onChange func(sameday.Snapshot),
	) (*sameday.Watch, error)
}

type draftLoader interface {
	Load(ctx context.Context, id string) (*booking.BookingDraft, error)
}

type Services struct {
	Resolver  availabilityResolver
	SameDay   sameDayEvaluator
	Watcher   sameDayWatcher
	Rooms     roomLister
	Submitter bookingSubmitter
	Bookings  bookingStatusUpdater
	Drafts    draftLoader
}

type Server struct {
	srv    *http.Server
	router chi.Router
	l      *logger.Logger
	conf   Conf
	svc    Services
}

type Conf struct {
	L                 *logger.Logger
	ServerLogger      *log.Logger
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	LivenessEndpoint  string
	SameDayPoll       time.Duration
	CountdownTick     time.Duration
}

func New(ctx context.Context, conf Conf, svc Services) (*Server, error) {
	router := chi.NewRouter()

	//nolint:exhaustruct
	srv := &http.Server{
		Addr:              net.JoinHostPort(conf.Host, conf.Port),
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		ErrorLog:          conf.ServerLogger,
		Handler:           router,
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	server := &Server{
		srv:    srv,
		router: router,
		l:      conf.L,
		conf:   conf,
		svc:    svc,
	}

	server.addRoutes(router)

	return server, nil
}

func (s *Server) Srv() *http.Server {
	return s.srv
}

func (s *Server) Handler() http.Handler {
	return s.router
}
