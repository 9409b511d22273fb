package export_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/export"
	"signalhub.app/correlator/internal/store"
)

type mockTarget struct {
	created []export.Payload
	result  export.Result
	err     error
}

func (t *mockTarget) Create(ctx context.Context, payload export.Payload) (export.Result, error) {
	if t.err != nil {
		return export.Result{}, t.err
	}
	t.created = append(t.created, payload)
	return t.result, nil
}

type mockGroupStore struct {
	store.GroupStore
	exported map[int64]string
}

func (m *mockGroupStore) MarkExported(ctx context.Context, id int64, externalID, externalURL string) error {
	if m.exported == nil {
		m.exported = make(map[int64]string)
	}
	m.exported[id] = externalID
	return nil
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

var _ = Describe("Exporter", func() {
	var (
		ctx     context.Context
		target  *mockTarget
		groups  *mockGroupStore
		signals *mockSignalStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		target = &mockTarget{result: export.Result{ExternalID: "LIN-42", ExternalURL: "https://linear.app/LIN-42"}}
		groups = &mockGroupStore{}
		signals = &mockSignalStore{signals: map[int64]domain.Signal{
			1: {ID: 1, Source: domain.SourceGitHub, Title: "Webhook timeouts", Body: "deliveries time out", Permalink: "https://github.com/acme/api/issues/7", Labels: []string{"bug"}},
			2: {ID: 2, Source: domain.SourceDiscord, SourceID: "thread-9", Body: "same here", Permalink: "https://discord.com/t/9"},
		}}
	})

	group := func() *domain.GroupCandidate {
		return &domain.GroupCandidate{
			ID:          100,
			CanonicalID: 1,
			Members: []domain.GroupMember{
				{SignalID: 1, Similarity: 1.0},
				{SignalID: 2, Similarity: 0.8},
			},
			AvgSimilarity: 0.9,
			Status:        domain.GroupStatusPending,
		}
	}

	It("builds a payload from the canonical signal and records the external id", func() {
		exporter := export.NewExporter(target, groups, signals, nil)

		result, err := exporter.ExportGroup(ctx, group())
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ExternalID).To(Equal("LIN-42"))
		Expect(groups.exported).To(HaveKeyWithValue(int64(100), "LIN-42"))

		Expect(target.created).To(HaveLen(1))
		payload := target.created[0]
		Expect(payload.Title).To(Equal("Webhook timeouts"))
		Expect(payload.Description).To(ContainSubstring("https://github.com/acme/api/issues/7"))
		Expect(payload.Description).To(ContainSubstring("https://discord.com/t/9"))
		Expect(payload.Labels).To(ContainElement("bug"))
	})

	It("does not re-create an issue for an already exported group", func() {
		exporter := export.NewExporter(target, groups, signals, nil)
		already := group()
		externalID, externalURL := "LIN-7", "https://linear.app/LIN-7"
		already.ExternalID, already.ExternalURL = &externalID, &externalURL

		result, err := exporter.ExportGroup(ctx, already)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ExternalID).To(Equal("LIN-7"))
		Expect(target.created).To(BeEmpty())
		Expect(groups.exported).To(BeEmpty())
	})

	It("labels cross-cutting groups", func() {
		exporter := export.NewExporter(target, groups, signals, nil)
		crossCutting := group()
		crossCutting.IsCrossCutting = true

		_, err := exporter.ExportGroup(ctx, crossCutting)
		Expect(err).NotTo(HaveOccurred())
		Expect(target.created[0].Labels).To(ContainElement("cross-cutting"))
	})

	It("skips unresolvable members instead of failing the export", func() {
		exporter := export.NewExporter(target, groups, signals, nil)
		withGhost := group()
		withGhost.Members = append(withGhost.Members, domain.GroupMember{SignalID: 99, Similarity: 0.7})

		_, err := exporter.ExportGroup(ctx, withGhost)
		Expect(err).NotTo(HaveOccurred())
		Expect(target.created).To(HaveLen(1))
	})

	It("propagates target failures without recording an id", func() {
		target.err = errors.New("linear unavailable")
		exporter := export.NewExporter(target, groups, signals, nil)

		_, err := exporter.ExportGroup(ctx, group())
		Expect(err).To(MatchError(ContainSubstring("creating external issue")))
		Expect(groups.exported).To(BeEmpty())
	})
})
