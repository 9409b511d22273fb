package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/faults"
	"signalhub.app/correlator/internal/http/handler"
	"signalhub.app/correlator/internal/service"
	"signalhub.app/correlator/internal/store"
)

type mockIngestService struct {
	ingestFn func(ctx context.Context, params service.SignalIngestParams) (*service.SignalIngestResult, error)
}

func (m *mockIngestService) Ingest(ctx context.Context, params service.SignalIngestParams) (*service.SignalIngestResult, error) {
	return m.ingestFn(ctx, params)
}

type mockSignalStore struct {
	store.SignalStore
	signals map[int64]domain.Signal
}

func (m *mockSignalStore) GetByID(ctx context.Context, id int64) (*domain.Signal, error) {
	if s, ok := m.signals[id]; ok {
		return &s, nil
	}
	return nil, store.ErrNotFound
}

var _ = Describe("SignalHandler", func() {
	var (
		router  *gin.Engine
		svc     *mockIngestService
		signals *mockSignalStore
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockIngestService{}
		signals = &mockSignalStore{signals: map[int64]domain.Signal{}}
		h := handler.NewSignalHandler(svc, signals, "X-Trace-Id")
		router.POST("/signals", h.Ingest)
		router.GET("/signals/:id/triage", h.Triage)
	})

	Describe("Ingest", func() {
		It("returns 202 with the signal id on success", func() {
			svc.ingestFn = func(_ context.Context, params service.SignalIngestParams) (*service.SignalIngestResult, error) {
				Expect(params.Source).To(Equal(domain.SourceGitHub))
				return &service.SignalIngestResult{
					Signal:   &domain.Signal{ID: 42},
					Enqueued: true,
				}, nil
			}

			body, _ := json.Marshal(map[string]any{
				"source":    "github",
				"source_id": "acme/api#7",
				"body":      "webhook deliveries time out",
			})

			req := httptest.NewRequest(http.MethodPost, "/signals", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["signal_id"]).To(BeNumerically("==", 42))
			Expect(resp["enqueued"]).To(BeTrue())
		})

		It("forwards the trace header to the service", func() {
			var gotTrace *string
			svc.ingestFn = func(_ context.Context, params service.SignalIngestParams) (*service.SignalIngestResult, error) {
				gotTrace = params.TraceID
				return &service.SignalIngestResult{Signal: &domain.Signal{ID: 1}}, nil
			}

			body, _ := json.Marshal(map[string]any{"source": "discord", "source_id": "t-1", "body": "x"})
			req := httptest.NewRequest(http.MethodPost, "/signals", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Trace-Id", "abc123")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			Expect(gotTrace).NotTo(BeNil())
			Expect(*gotTrace).To(Equal("abc123"))
		})

		It("returns 400 on a missing required field", func() {
			req := httptest.NewRequest(http.MethodPost, "/signals", bytes.NewBufferString(`{"body":"text"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when the service rejects the signal", func() {
			svc.ingestFn = func(_ context.Context, _ service.SignalIngestParams) (*service.SignalIngestResult, error) {
				return nil, &faults.ValidationError{Field: "source", Reason: "unknown"}
			}

			body, _ := json.Marshal(map[string]any{"source": "carrier-pigeon", "source_id": "x", "body": "y"})
			req := httptest.NewRequest(http.MethodPost, "/signals", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 500 when the service fails", func() {
			svc.ingestFn = func(_ context.Context, _ service.SignalIngestParams) (*service.SignalIngestResult, error) {
				return nil, errors.New("database down")
			}

			body, _ := json.Marshal(map[string]any{"source": "github", "source_id": "x", "body": "y"})
			req := httptest.NewRequest(http.MethodPost, "/signals", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Triage", func() {
		It("scores a stored signal", func() {
			signals.signals[7] = domain.Signal{
				ID:     7,
				Title:  "Crash on login",
				Body:   "panic: runtime error",
				Labels: []string{"bug"},
			}

			req := httptest.NewRequest(http.MethodGet, "/signals/7/triage", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			triageBody, ok := resp["triage"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(triageBody["result"]).To(Equal("bug"))
		})

		It("returns 404 for an unknown signal", func() {
			req := httptest.NewRequest(http.MethodGet, "/signals/999/triage", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a non-numeric id", func() {
			req := httptest.NewRequest(http.MethodGet, "/signals/abc/triage", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
