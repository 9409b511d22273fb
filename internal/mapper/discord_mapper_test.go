package mapper_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/mapper"
)

var _ = Describe("DiscordThreadMapper", func() {
	var (
		m   mapper.SignalMapper
		ctx context.Context
	)

	BeforeEach(func() {
		m = mapper.NewDiscordThreadMapper()
		ctx = context.Background()
	})

	Describe("Map", func() {
		It("extracts a normalized signal from a forum thread", func() {
			body := map[string]any{
				"thread_id":  "112233445566778899",
				"guild_id":   "998877",
				"channel_id": "665544",
				"title":      "Login page crashes on mobile",
				"content":    "Opening the login page on iOS throws a TypeError.",
				"url":        "https://discord.com/channels/998877/112233445566778899",
				"tags":       []any{"bug", "mobile"},
				"timestamp":  "2026-08-22T15:04:05Z",
			}

			params, err := m.Map(ctx, body, nil)
			Expect(err).ToNot(HaveOccurred())

			Expect(params.Source).To(Equal(domain.SourceDiscord))
			Expect(params.SourceID).To(Equal("112233445566778899"))
			Expect(params.Labels).To(Equal([]string{"bug", "mobile"}))
			Expect(params.Metadata).To(HaveKeyWithValue("guild_id", "998877"))
			Expect(params.CreatedAt).ToNot(BeNil())
		})

		It("errors when the thread id is missing", func() {
			_, err := m.Map(ctx, map[string]any{"content": "some text"}, nil)
			Expect(err).To(MatchError(ContainSubstring("missing thread_id")))
		})
	})

	Describe("ForSource", func() {
		It("resolves mappers for webhook-capable sources", func() {
			_, ok := mapper.ForSource(domain.SourceGitHub)
			Expect(ok).To(BeTrue())
			_, ok = mapper.ForSource(domain.SourceDiscord)
			Expect(ok).To(BeTrue())
		})

		It("has no mapper for sources that push normalized signals", func() {
			_, ok := mapper.ForSource(domain.SourceSlack)
			Expect(ok).To(BeFalse())
		})
	})
})
