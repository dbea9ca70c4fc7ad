package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"reading-quiz-service/internal/app"
	"reading-quiz-service/internal/auth"
	"reading-quiz-service/internal/domain"
)

// WSHandler lets a student answer their own quiz over a websocket.
type WSHandler struct {
	service  *app.QuizService
	guard    app.AttemptGuard
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, guard app.AttemptGuard) *WSHandler {
	return &WSHandler{
		service: service,
		guard:   guard,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID int    `json:"questionId"`
	Answer     string `json:"answer"`
}

type answerResult struct {
	QuestionID int `json:"questionId"`
	domain.AnswerOutcome
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request once the caller is known to own an open quiz.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.URL.Query().Get("quizId"), 10, 64)
	if err != nil {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	claims, _ := auth.FromContext(r.Context())
	quiz, err := h.service.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if quiz.UserID != claims.UserID {
		writeServiceError(w, r, domain.ErrForbidden)
		return
	}

	holder := uuid.NewString()
	ok, err := h.guard.Claim(r.Context(), quizID, holder)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !ok {
		writeErr(w, http.StatusConflict, "quiz is already open in another connection")
		return
	}
	defer func() {
		if err := h.guard.Release(context.Background(), quizID, holder); err != nil {
			log.Printf("ws release quiz %d: %v", quizID, err)
		}
	}()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	out := newOutbox(conn, 16)
	defer out.close()

	if !out.push(outboundMessage[any]{Type: "quiz", Payload: quizView(quiz)}) {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		var msgs []outboundMessage[any]
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				msgs = append(msgs, errorMessage("invalid answer payload"))
				break
			}
			msgs = h.answer(r.Context(), quizID, payload)
		default:
			msgs = append(msgs, errorMessage("unsupported message type"))
		}
		for _, msg := range msgs {
			if !out.push(msg) {
				return
			}
		}
	}
}

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// outbox serializes writes to a connection on its own goroutine. Once a write
// fails the writer stops and push reports false instead of blocking.
type outbox struct {
	msgs chan outboundMessage[any]
	done chan struct{}
}

func newOutbox(w jsonWriter, size int) *outbox {
	o := &outbox{msgs: make(chan outboundMessage[any], size), done: make(chan struct{})}
	go func() {
		defer close(o.done)
		for msg := range o.msgs {
			if err := w.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()
	return o
}

func (o *outbox) push(msg outboundMessage[any]) bool {
	select {
	case <-o.done:
		return false
	default:
	}
	select {
	case o.msgs <- msg:
		return true
	case <-o.done:
		return false
	}
}

// close flushes queued messages and waits for the writer to stop.
func (o *outbox) close() {
	close(o.msgs)
	<-o.done
}

// answer submits one answer and returns the messages to send back.
func (h *WSHandler) answer(ctx context.Context, quizID int64, payload answerPayload) []outboundMessage[any] {
	outcome, err := h.service.SubmitAnswer(ctx, quizID, payload.QuestionID, payload.Answer)
	if err != nil && !outcome.Completed {
		return []outboundMessage[any]{errorMessage(err.Error())}
	}
	msgs := []outboundMessage[any]{{
		Type:    "answerResult",
		Payload: answerResult{QuestionID: payload.QuestionID, AnswerOutcome: outcome},
	}}
	if !outcome.Completed {
		return msgs
	}

	result, err := h.service.GetResult(ctx, quizID)
	if errors.Is(err, domain.ErrNotFound) {
		return msgs
	}
	if err != nil {
		log.Printf("ws load result for quiz %d: %v", quizID, err)
		return append(msgs, errorMessage("result unavailable"))
	}
	return append(msgs, outboundMessage[any]{Type: "result", Payload: result})
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
