package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lusya00/thesis-frontend-sub000/internal/api"
	"github.com/lusya00/thesis-frontend-sub000/internal/availability"
	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/sameday"
	"github.com/lusya00/thesis-frontend-sub000/internal/selection"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
	"github.com/lusya00/thesis-frontend-sub000/internal/submission"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

type availabilityResponse struct {
	Availability *booking.AvailabilityResult `json:"availability"`
	Error        string                      `json:"error,omitempty"`
}

type sameDayResponse struct {
	Availability *booking.SameDayAvailability `json:"availability"`
	Countdown    sameday.Countdown            `json:"countdown"`
	Error        string                       `json:"error,omitempty"`
}

type unavailableResponse struct {
	Error  string             `json:"error"`
	RoomID int                `json:"room_id"`
	Status booking.RoomStatus `json:"status"`
}

type loginResponse struct {
	Error       string `json:"error"`
	DraftID     string `json:"draft_id,omitempty"`
	RedirectURL string `json:"redirect_url"`
}

type conflictResponse struct {
	Error    string                    `json:"error"`
	Conflict *submission.ConflictError `json:"conflict"`
}

type statusRequest struct {
	Status booking.Status `json:"status"`
}

type statusResponse struct {
	ID     int            `json:"id"`
	Status booking.Status `json:"status"`
}

type retryResponse struct {
	Error   string `json:"error"`
	DraftID string `json:"draft_id,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.LogErrorf("Could not encode response: %v", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// sessionFromRequest turns the Authorization header into a per-request
// session. A malformed token is answered with 401 and ok=false.
func (s *Server) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := session.FromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err.Error())

		return nil, false
	}

	return sess, true
}

func (s *Server) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, name+" must be a positive integer")

		return 0, false
	}

	return id, true
}

// rangeFromQuery parses start_date/end_date and checks them against today.
func (s *Server) rangeFromQuery(w http.ResponseWriter, r *http.Request) (booking.DateRange, bool) {
	q := r.URL.Query()

	rng, err := booking.ParseDateRange(q.Get("start_date"), q.Get("end_date"))
	if err == nil {
		err = rng.Validate(s.svc.SameDay.Today())
	}

	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  err.Error(),
			Fields: map[string][]string{"date_range": {err.Error()}},
		})

		return booking.DateRange{}, false
	}

	return rng, true
}

func (s *Server) availabilityHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	roomID, ok := s.intParam(w, r, "roomID")
	if !ok {
		return
	}

	rng, ok := s.rangeFromQuery(w, r)
	if !ok {
		return
	}

	res, err := s.svc.Resolver.Resolve(r.Context(), sess, roomID, rng)
	if res == nil {
		s.writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	out := availabilityResponse{Availability: res}
	if errors.Is(err, availability.ErrUnresolved) {
		out.Error = err.Error()
	}

	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) sameDayHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	roomID, ok := s.intParam(w, r, "roomID")
	if !ok {
		return
	}

	date := s.svc.SameDay.Today()

	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := booking.ParseDate(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())

			return
		}

		date = parsed
	}

	res, err := s.svc.SameDay.EvaluateToday(r.Context(), sess, roomID, date)
	if errors.Is(err, sameday.ErrNotToday) {
		s.writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	out := sameDayResponse{Availability: res, Countdown: sameday.ComputeCountdown(res, s.svc.SameDay.Now())}
	if err != nil {
		out.Error = err.Error()
	}

	s.writeJSON(w, http.StatusOK, out)
}

// sameDayWatchHandler streams same-day snapshots as server-sent events
// until the client goes away, which also stops the watch timers.
func (s *Server) sameDayWatchHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	roomID, ok := s.intParam(w, r, "roomID")
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok || s.svc.Watcher == nil {
		s.writeError(w, http.StatusNotImplemented, "streaming is not supported")

		return
	}

	changed := make(chan struct{}, 1)

	watch, err := s.svc.Watcher.Watch(r.Context(), sess, roomID, s.svc.SameDay.Today(), sameday.WatchConfig{
		PollInterval: s.conf.SameDayPoll,
		TickInterval: s.conf.CountdownTick,
	}, func(sameday.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())

		return
	}
	defer watch.Stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	send := func() bool {
		raw, err := json.Marshal(watch.Snapshot())
		if err != nil {
			s.l.LogErrorf("Could not encode same-day snapshot: %v", err.Error())

			return false
		}

		if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", raw); err != nil {
			return false
		}

		flusher.Flush()

		return true
	}

	if !send() {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-changed:
			if !send() {
				return
			}
		}
	}
}

// settledBoard loads the homestay's rooms and runs one full check cycle for
// the requested range. The board sees a single range, so it does not
// debounce. The caller must Close the board.
func (s *Server) settledBoard(w http.ResponseWriter, r *http.Request) (*selection.Board, bool) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return nil, false
	}

	homestayID, ok := s.intParam(w, r, "homestayID")
	if !ok {
		return nil, false
	}

	rng, ok := s.rangeFromQuery(w, r)
	if !ok {
		return nil, false
	}

	ctx := r.Context()

	rooms, err := s.svc.Rooms.HomestayRooms(ctx, sess, homestayID)
	if err != nil {
		s.l.LogErrorf("Could not list rooms of homestay %d: %v", homestayID, err)
		s.writeError(w, http.StatusBadGateway, err.Error())

		return nil, false
	}

	board := selection.NewBoard(ctx, selection.Config{L: s.l}, s.svc.Resolver, sess, rooms)
	board.SetRange(rng)

	if err := board.WaitSettled(ctx); err != nil {
		board.Close()
		s.writeError(w, http.StatusGatewayTimeout, err.Error())

		return nil, false
	}

	return board, true
}

func (s *Server) homestayRoomsHandler(w http.ResponseWriter, r *http.Request) {
	board, ok := s.settledBoard(w, r)
	if !ok {
		return
	}
	defer board.Close()

	s.writeJSON(w, http.StatusOK, board.Partition())
}

func (s *Server) selectRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := s.intParam(w, r, "roomID")
	if !ok {
		return
	}

	board, ok := s.settledBoard(w, r)
	if !ok {
		return
	}
	defer board.Close()

	sel, err := board.Select(roomID)
	if errors.Is(err, selection.ErrUnknownRoom) {
		s.writeError(w, http.StatusNotFound, err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, sel)
}

func (s *Server) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var draft booking.BookingDraft

	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		s.writeError(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))

		return
	}

	if draft.ID == "" {
		draft.ID = r.Header.Get("Idempotency-Key")
	}

	draft.ID = s.resumableDraftID(r, draft.ID)

	// no status map is kept between requests, the submitter re-checks the room
	out, err := s.svc.Submitter.Submit(r.Context(), sess, &draft, nil)
	if err != nil {
		s.writeSubmitError(w, &draft, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, out)
}

// resumableDraftID keeps a client supplied draft id only when it names a
// stored draft. Ids are issued server-side, an unknown one is dropped so the
// submitter assigns a fresh id.
func (s *Server) resumableDraftID(r *http.Request, id string) string {
	if id == "" {
		return ""
	}

	if _, err := s.svc.Drafts.Load(r.Context(), id); err != nil {
		if !errors.Is(err, booking.ErrNotFound) {
			s.l.LogErrorf("Could not look up draft %s: %v", id, err.Error())
		}

		return ""
	}

	return id
}

func (s *Server) writeSubmitError(w http.ResponseWriter, draft *booking.BookingDraft, err error) {
	if inputErr := booking.IsInputError(err); inputErr != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid booking", Fields: inputErr.Fields()})

		return
	}

	if unavailableErr := booking.IsUnavailableRoomError(err); unavailableErr != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, unavailableResponse{
			Error:  unavailableErr.Error(),
			RoomID: unavailableErr.RoomID,
			Status: unavailableErr.Status,
		})

		return
	}

	if loginErr := submission.IsLoginRequiredError(err); loginErr != nil {
		s.writeJSON(w, http.StatusUnauthorized, loginResponse{
			Error:       loginErr.Error(),
			DraftID:     loginErr.DraftID,
			RedirectURL: loginErr.RedirectURL,
		})

		return
	}

	if conflictErr := submission.IsConflictError(err); conflictErr != nil {
		s.writeJSON(w, http.StatusConflict, conflictResponse{Error: conflictErr.Error(), Conflict: conflictErr})

		return
	}

	if retryErr := submission.IsRetryableError(err); retryErr != nil {
		s.writeJSON(w, http.StatusBadGateway, retryResponse{Error: retryErr.Error(), DraftID: draft.ID})

		return
	}

	s.l.LogErrorf("Could not create a booking: %v", err.Error())
	s.writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// bookingStatusHandler changes the status of an existing booking, which is
// how a signed-in user cancels. Guests get 401.
func (s *Server) bookingStatusHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	bookingID, ok := s.intParam(w, r, "bookingID")
	if !ok {
		return
	}

	var req statusRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))

		return
	}

	if !req.Status.Known() {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "invalid booking status",
			Fields: map[string][]string{"status": {fmt.Sprintf("unknown status %q", req.Status)}},
		})

		return
	}

	err := s.svc.Bookings.UpdateBookingStatus(r.Context(), sess, bookingID, req.Status)

	switch apiErr := api.IsError(err); {
	case err == nil:
	case errors.Is(err, api.ErrAuthRequired) || errors.Is(err, api.ErrUnauthorized):
		s.writeError(w, http.StatusUnauthorized, err.Error())

		return
	case apiErr != nil && apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError:
		s.writeError(w, apiErr.StatusCode, err.Error())

		return
	default:
		s.l.LogErrorf("Could not update booking %d: %v", bookingID, err.Error())
		s.writeError(w, http.StatusBadGateway, err.Error())

		return
	}

	s.l.LogInfo("Booking %d set to %s by user %s", bookingID, req.Status, sess.Subject())

	s.writeJSON(w, http.StatusOK, statusResponse{ID: bookingID, Status: req.Status})
}

func (s *Server) draftHandler(w http.ResponseWriter, r *http.Request) {
	draft, err := s.svc.Drafts.Load(r.Context(), chi.URLParam(r, "draftID"))
	if errors.Is(err, booking.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())

		return
	}

	if err != nil {
		s.l.LogErrorf("Could not load draft: %v", err.Error())
		s.writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))

		return
	}

	s.writeJSON(w, http.StatusOK, draft)
}

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRoutes(r chi.Router) {
	r.Use(s.requestIDMiddleware(), s.loggerMiddleware(), s.recoverMiddleware())

	r.Get(s.conf.LivenessEndpoint, s.livenessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms/{roomID}/availability", s.availabilityHandler)
		r.Get("/rooms/{roomID}/same-day", s.sameDayHandler)
		r.Get("/rooms/{roomID}/same-day/watch", s.sameDayWatchHandler)
		r.Get("/homestays/{homestayID}/rooms", s.homestayRoomsHandler)
		r.Get("/homestays/{homestayID}/rooms/{roomID}/selection", s.selectRoomHandler)
		r.Post("/bookings", s.createBookingHandler)
		r.Put("/bookings/{bookingID}/status", s.bookingStatusHandler)
		r.Get("/drafts/{draftID}", s.draftHandler)
	})
}
