package handlers

import (
	"context"
	"net/http"

	"github.com/bekarys-dev/championship-system/models"
	"github.com/bekarys-dev/championship-system/services"
	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// CreateSession создает новую сессию сезона в фазе просмотра чемпионата.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.Create(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getSessionIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.sessionService.Get(r.Context(), sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListResults отдает итоги всех завершенных соревнований сессии.
func (h *SessionHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getSessionIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	results, err := h.sessionService.Results(r.Context(), sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Register добавляет нового участника. Открыт для зрителей.
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getSessionIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Name string `json:"name" validate:"required"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.sessionService.Register(r.Context(), sessionID, input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SessionHandler) StartQualification(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessionService.StartQualification)
}

// SetScore записывает квалификационный результат участника.
func (h *SessionHandler) SetScore(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getSessionIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participantID := chi.URLParam(r, "participantID")

	var input struct {
		Score *float64 `json:"score" validate:"required"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.sessionService.SetScore(r.Context(), sessionID, participantID, *input.Score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SessionHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessionService.GenerateBracket)
}

// SetMatchWinner фиксирует победителя матча и продвигает его по сетке.
func (h *SessionHandler) SetMatchWinner(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getSessionIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID := chi.URLParam(r, "matchID")

	var input struct {
		WinnerID string `json:"winner_id" validate:"required"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.sessionService.SetMatchWinner(r.Context(), sessionID, matchID, input.WinnerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SessionHandler) ReturnToChampionship(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessionService.ReturnToChampionship)
}

func (h *SessionHandler) ResetSeason(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessionService.ResetSeason)
}

// transition обслуживает переходы фаз без тела запроса.
func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, sessionID string) (*models.Session, error)) {
	sessionID, err := getSessionIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := op(r.Context(), sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
