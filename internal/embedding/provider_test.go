package embedding_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"signalhub.app/correlator/internal/embedding"
	"signalhub.app/correlator/internal/faults"
	"signalhub.app/correlator/internal/tokens"
)

var _ = Describe("OpenAIProvider", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	newManager := func() *tokens.Manager {
		mgr, err := tokens.NewManager(tokens.Config{Tokens: []string{"tok-a"}}, nil)
		Expect(err).NotTo(HaveOccurred())
		return mgr
	}

	It("rejects unknown embedding models", func() {
		_, err := embedding.NewOpenAIProvider(embedding.Config{Model: "made-up-model"}, newManager(), nil)
		var cfgErr *faults.ConfigError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
	})

	It("rejects empty text without spending a request", func() {
		provider, err := embedding.NewOpenAIProvider(embedding.Config{Model: "text-embedding-3-small"}, newManager(), nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = provider.Embed(ctx, "   ")
		Expect(faults.IsValidation(err)).To(BeTrue())
	})

	It("exhausts the credential on a quota response so rotation skips it", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"rate limited","type":"rate_limit_error"}}`)
		}))
		defer server.Close()

		mgr := newManager()
		provider, err := embedding.NewOpenAIProvider(embedding.Config{
			BaseURL: server.URL,
			Model:   "text-embedding-3-small",
		}, mgr, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = provider.Embed(ctx, "webhook deliveries time out")
		Expect(faults.IsQuota(err)).To(BeTrue())

		_, err = mgr.Next(ctx)
		var noToken *faults.NoTokenError
		Expect(errors.As(err, &noToken)).To(BeTrue())
	})
})
