package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/movement-pass/public-api/internal/app/dispatch"
	"github.com/movement-pass/public-api/internal/app/identity"
	"github.com/movement-pass/public-api/internal/app/passes"
	"github.com/movement-pass/public-api/internal/app/uploads"
	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/platform/metrics"
	"github.com/movement-pass/public-api/internal/ports/out/idempotency"
)

// maxBodyBytes bounds request bodies; every payload in this API is a small JSON object.
const maxBodyBytes = 64 << 10

// Server turns HTTP requests into dispatched requests and results back into responses.
type Server struct {
	Dispatcher *dispatch.Dispatcher
	Idem       idempotency.Store
	Metrics    *metrics.Metrics
	Log        *slog.Logger
	Now        func() time.Time

	validate *validator.Validate
}

func NewServer(d *dispatch.Dispatcher, idem idempotency.Store) *Server {
	s := &Server{
		Dispatcher: d,
		Idem:       idem,
		Log:        slog.Default(),
		Now:        func() time.Time { return time.Now().UTC() },
	}
	s.validate = newValidator(func() time.Time { return s.Now() })
	return s
}

func (s *Server) rejected(operation string) {
	if s.Metrics != nil {
		s.Metrics.IncRejection(operation)
	}
}

// decode reads a JSON body into dst and validates it. It writes the 400 response itself and
// returns false when the body is unusable.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, body []byte, dst any) bool {
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(dst); err != nil {
		writeErrors(w, r, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeErrors(w, r, http.StatusBadRequest, validationMessages(err)...)
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeErrors(w, r, http.StatusBadRequest, msgInvalidBody)
		return nil, false
	}
	return b, true
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var in registerRequest
	if !s.decode(w, r, body, &in) {
		return
	}

	out, err := dispatch.Send[dispatch.Outcome[identity.TokenResult]](r.Context(), s.Dispatcher, in.toRequest())
	if err != nil {
		writeInternal(w, r, s.Log, err)
		return
	}
	res, found := out.Get()
	if !found {
		s.rejected(dispatch.KindRegister.String())
		writeErrors(w, r, http.StatusBadRequest, msgAlreadyRegistered)
		return
	}
	writeJSON(w, http.StatusOK, tokenFromResult(res))
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var in loginRequest
	if !s.decode(w, r, body, &in) {
		return
	}

	out, err := dispatch.Send[dispatch.Outcome[identity.TokenResult]](r.Context(), s.Dispatcher, identity.LoginRequest{
		MobilePhone: in.MobilePhone,
		DateOfBirth: in.DateOfBirth,
	})
	if err != nil {
		writeInternal(w, r, s.Log, err)
		return
	}
	res, found := out.Get()
	if !found {
		s.rejected(dispatch.KindLogin.String())
		writeErrors(w, r, http.StatusBadRequest, msgInvalidCredentials)
		return
	}
	writeJSON(w, http.StatusOK, tokenFromResult(res))
}

func (s *Server) PhotoURL(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var in photoRequest
	if !s.decode(w, r, body, &in) {
		return
	}

	res, err := dispatch.Send[uploads.PhotoURLResult](r.Context(), s.Dispatcher, uploads.PhotoURLRequest{
		ContentType: in.ContentType,
		Filename:    in.Filename,
	})
	if err != nil {
		writeInternal(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, photoFromResult(res))
}

func (s *Server) Apply(w http.ResponseWriter, r *http.Request) {
	applicant, ok := ApplicantFromContext(r.Context())
	if !ok {
		writeErrors(w, r, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var in applyRequest
	if !s.decode(w, r, body, &in) {
		return
	}

	var check *idemCheck
	if key := r.Header.Get(idempotencyHeader); key != "" && s.Idem != nil {
		c := newIdemCheck(key, applicant, r.Method, routePattern(r), body)
		decision, replay, err := claimKey(r.Context(), s.Idem, c, s.Now())
		if err != nil {
			writeInternal(w, r, s.Log, err)
			return
		}
		switch decision {
		case idemConflict:
			writeErrors(w, r, http.StatusConflict, msgIdempotencyReuse)
			return
		case idemInFlight:
			writeErrors(w, r, http.StatusConflict, msgIdempotencyBusy)
			return
		case idemReplay:
			writeRecord(w, *replay)
			return
		}
		check = &c
	}

	res, err := dispatch.Send[passes.IDResult](r.Context(), s.Dispatcher, in.toRequest(applicant))
	if err != nil {
		if check != nil {
			// Free the key so the client can retry a request that never took effect.
			if rerr := s.Idem.Release(context.WithoutCancel(r.Context()), check.meta); rerr != nil {
				s.Log.WarnContext(r.Context(), "release idempotency key", "error", rerr)
			}
		}
		writeInternal(w, r, s.Log, err)
		return
	}

	resp := idResponse{ID: string(res.ID)}
	if check != nil {
		if b, err := json.Marshal(resp); err == nil {
			if err := s.Idem.Put(r.Context(), check.resp, idempotency.Record{
				StatusCode:  http.StatusCreated,
				ContentType: "application/json",
				Body:        append(b, '\n'),
				CreatedAt:   s.Now(),
			}); err != nil {
				s.Log.WarnContext(r.Context(), "store idempotent response", "error", err)
			}
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) ViewPass(w http.ResponseWriter, r *http.Request) {
	applicant, ok := ApplicantFromContext(r.Context())
	if !ok {
		writeErrors(w, r, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	out, err := dispatch.Send[dispatch.Outcome[passes.DetailResult]](r.Context(), s.Dispatcher, passes.ViewPassRequest{
		ID:          domain.PassID(chi.URLParam(r, "id")),
		ApplicantID: applicant,
	})
	if err != nil {
		writeInternal(w, r, s.Log, err)
		return
	}
	res, found := out.Get()
	if !found {
		s.rejected(dispatch.KindViewPass.String())
		writeErrors(w, r, http.StatusNotFound, msgPassNotFound)
		return
	}

	w.Header().Set("Cache-Control", cacheControl(res.CacheMaxAge))
	writeJSON(w, http.StatusOK, passDetailFromDomain(res.Pass))
}

func (s *Server) ViewPasses(w http.ResponseWriter, r *http.Request) {
	applicant, ok := ApplicantFromContext(r.Context())
	if !ok {
		writeErrors(w, r, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	startKey, err := listKeyFromQuery(r)
	if err != nil {
		writeErrors(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := dispatch.Send[passes.ListResult](r.Context(), s.Dispatcher, passes.ViewPassesRequest{
		ApplicantID: applicant,
		StartKey:    startKey,
	})
	if err != nil {
		writeInternal(w, r, s.Log, err)
		return
	}

	w.Header().Set("Cache-Control", cacheControl(passes.ListCacheMaxAge))
	writeJSON(w, http.StatusOK, passListFromResult(res))
}

// listKeyFromQuery reads the ?id=&endAt= cursor. Both must be present for it to apply.
func listKeyFromQuery(r *http.Request) (*domain.PassListKey, error) {
	q := r.URL.Query()
	id, endAt := q.Get("id"), q.Get("endAt")
	if id == "" || endAt == "" {
		return nil, nil
	}
	t, err := parseTime(endAt)
	if err != nil {
		return nil, errors.New(`"endAt" must be an ISO 8601 timestamp`)
	}
	return &domain.PassListKey{ID: domain.PassID(id), EndAt: t}, nil
}

func cacheControl(maxAge time.Duration) string {
	return "private,max-age=" + strconv.Itoa(int(maxAge/time.Second))
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
