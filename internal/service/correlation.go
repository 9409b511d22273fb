package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"signalhub.app/correlator/common/id"
	"signalhub.app/correlator/common/logger"
	"signalhub.app/correlator/core/config"
	"signalhub.app/correlator/internal/classify"
	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/embedding"
	"signalhub.app/correlator/internal/faults"
	"signalhub.app/correlator/internal/grouping"
	"signalhub.app/correlator/internal/learning"
	"signalhub.app/correlator/internal/store"
	"signalhub.app/correlator/internal/triage"
)

// batchWindow bounds how many recent signals one correlation pass considers.
const batchWindow = 200

// SignalReport is the full pipeline outcome for one signal: feature
// matches, triage category and historical context.
type SignalReport struct {
	Signal            *domain.Signal      `json:"signal"`
	Matches           []classify.Match    `json:"matches"`
	FellBack          bool                `json:"fell_back"`
	Triage            domain.TriageResult `json:"triage"`
	SimilarFixes      []domain.SimilarFix `json:"similar_fixes,omitempty"`
	SuggestedPatterns []string            `json:"suggested_patterns,omitempty"`
}

// Stores is the slice of the store factory the correlation service uses.
type Stores interface {
	Signals() store.SignalStore
	Features() store.FeatureStore
	Groups() store.GroupStore
	Fixes() store.FixStore
}

// CorrelationService orchestrates classification, grouping, triage and
// learning retrieval over persisted signals.
type CorrelationService struct {
	signals    store.SignalStore
	features   store.FeatureStore
	groups     store.GroupStore
	fixes      store.FixStore
	classifier *classify.Classifier
	retriever  *learning.Retriever
	embeddings *embedding.Service
	cache      *embedding.Cache
	cfg        config.PipelineConfig
	logger     *slog.Logger
}

func NewCorrelationService(
	stores Stores,
	classifier *classify.Classifier,
	retriever *learning.Retriever,
	embeddings *embedding.Service,
	cache *embedding.Cache,
	cfg config.PipelineConfig,
	log *slog.Logger,
) *CorrelationService {
	if log == nil {
		log = slog.Default()
	}
	return &CorrelationService{
		signals:    stores.Signals(),
		features:   stores.Features(),
		groups:     stores.Groups(),
		fixes:      stores.Fixes(),
		classifier: classifier,
		retriever:  retriever,
		embeddings: embeddings,
		cache:      cache,
		cfg:        cfg,
		logger:     log,
	}
}

// ProcessSignal runs the single-signal path: classify against the feature
// taxonomy, triage, and surface similar historical fixes for likely bugs.
func (s *CorrelationService) ProcessSignal(ctx context.Context, signalID int64) (*SignalReport, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SignalID:  logger.Ptr(signalID),
		Component: "correlator.service.correlation",
	})

	signal, err := s.signals.GetByID(ctx, signalID)
	if err != nil {
		return nil, fmt.Errorf("loading signal %d: %w", signalID, err)
	}

	matches, fellBack, err := s.classifier.Classify(ctx, *signal, s.featureCandidates(ctx), classify.Options{
		UseSemantic: s.cfg.UseSemanticClassification,
	})
	if err != nil {
		return nil, fmt.Errorf("classifying signal %d: %w", signalID, err)
	}

	report := &SignalReport{
		Signal:   signal,
		Matches:  matches,
		FellBack: fellBack,
		Triage:   triage.Score(triage.FromSignal(*signal)),
	}

	if report.Triage.Result == domain.TriageBug && s.retriever != nil {
		fixes, err := s.retriever.FindSimilar(ctx, *signal, learning.DefaultMaxResults)
		if err != nil {
			// Historical context is additive; its absence never fails triage.
			s.logger.WarnContext(ctx, "similar-fix retrieval failed", "error", err)
		} else {
			report.SimilarFixes = fixes
			report.SuggestedPatterns = learning.AggregatePatterns(fixes)
		}
	}

	s.logger.InfoContext(ctx, "signal processed",
		"matches", len(report.Matches),
		"fell_back", report.FellBack,
		"triage", report.Triage.Result,
		"similar_fixes", len(report.SimilarFixes))
	return report, nil
}

// CorrelateBatch runs one grouping pass over recent signals and persists
// every emitted group. The returned summary is always populated, even on
// partial failure.
func (s *CorrelationService) CorrelateBatch(ctx context.Context) (domain.GroupingResult, domain.RunSummary, error) {
	batchID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		BatchID:   logger.Ptr(batchID),
		Component: "correlator.service.correlation",
	})

	var summary domain.RunSummary

	signals, err := s.signals.ListRecent(ctx, batchWindow)
	if err != nil {
		return domain.GroupingResult{}, summary, fmt.Errorf("listing signals: %w", err)
	}
	if len(signals) == 0 {
		return domain.GroupingResult{}, summary, nil
	}

	scorer, threshold, categories := s.prepareScorer(ctx, signals, &summary)

	result := grouping.Group(signals, scorer, grouping.Options{
		MinSimilarity: threshold,
		MaxGroups:     s.cfg.MaxGroups,
		MaxGroupSize:  s.cfg.MaxGroupSize,
		Categories:    categories,
	})

	for i := range result.Groups {
		result.Groups[i].ID = id.New()
		if err := s.groups.Create(ctx, &result.Groups[i]); err != nil {
			summary.RecordError(strconv.FormatInt(result.Groups[i].CanonicalID, 10), "persist_group", err)
			continue
		}
		summary.Succeeded++
	}
	summary.Processed = len(signals)

	duplicates := grouping.FindDuplicates(signals, scorer, s.cfg.DuplicateThreshold, s.cfg.MaxGroups)
	for _, set := range duplicates.Groups {
		summary.Duplicates += len(set.Members)
		s.logger.InfoContext(ctx, "likely duplicate set",
			"canonical_id", set.CanonicalID, "members", len(set.Members))
	}

	s.logger.InfoContext(ctx, "correlation pass finished",
		"signals", len(signals),
		"groups", len(result.Groups),
		"ungrouped", len(result.Ungrouped),
		"duplicates", summary.Duplicates,
		"fallbacks", summary.Fallbacks,
		"errors", len(summary.Errors))
	return result, summary, nil
}

// prepareScorer embeds the batch (paced, cancellable between sub-batches)
// and returns a cosine scorer over the cached vectors, degrading to
// keyword overlap when semantic mode is off or embedding fails wholesale.
// The grouping threshold is returned with the scorer: the cosine knob for
// vector scoring, the percent knob rescaled to [0,1] for keyword scoring,
// so a degraded pass never compares keyword scores against the cosine
// threshold. It also classifies each signal to its best feature for
// cross-cutting detection.
func (s *CorrelationService) prepareScorer(ctx context.Context, signals []domain.Signal, summary *domain.RunSummary) (grouping.Scorer, float64, map[int64]string) {
	categories := s.categorize(ctx, signals, summary)

	// Keyword scorers produce Jaccard on [0,1]; the configured percent
	// threshold lives on 0-100.
	keywordThreshold := s.cfg.MinSimilarityPercent / 100

	if !s.cfg.UseSemanticClassification || s.embeddings == nil {
		return grouping.KeywordScorer(), keywordThreshold, categories
	}

	embedded := 0
	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for start := 0; start < len(signals); start += batchSize {
		if start > 0 && s.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				// Interrupting at a batch boundary is safe; vectors already
				// cached stay valid.
				s.logger.WarnContext(ctx, "embedding pass cancelled", "embedded", embedded)
				return grouping.KeywordScorer(), keywordThreshold, categories
			case <-time.After(s.cfg.BatchDelay):
			}
		}

		end := min(start+batchSize, len(signals))
		for _, sig := range signals[start:end] {
			if _, err := s.embeddings.Vector(ctx, embedding.KindSignal, sig.ID, sig.Text()); err != nil {
				summary.RecordError(sig.SourceID, "embed", err)
				continue
			}
			embedded++
		}
	}

	if embedded == 0 {
		summary.Fallbacks += len(signals)
		s.logger.WarnContext(ctx, "no signals embedded, degrading pass to keyword matching")
		return grouping.KeywordScorer(), keywordThreshold, categories
	}

	vectors := s.cache.GetAll(ctx, embedding.KindSignal)
	return grouping.VectorScorer(vectors), s.cfg.MinSimilarityCosine, categories
}

// categorize maps each signal to its best-matching feature name, feeding
// cross-cutting detection. Signals that cannot be classified simply have no
// category.
func (s *CorrelationService) categorize(ctx context.Context, signals []domain.Signal, summary *domain.RunSummary) map[int64]string {
	candidates := s.featureCandidates(ctx)
	if len(candidates) == 0 {
		return nil
	}

	names := make(map[int64]string, len(candidates))
	features, err := s.features.List(ctx)
	if err == nil {
		for _, f := range features {
			names[f.ID] = f.Name
		}
	}

	categories := make(map[int64]string, len(signals))
	for _, sig := range signals {
		matches, fellBack, err := s.classifier.Classify(ctx, sig, candidates, classify.Options{
			UseSemantic: s.cfg.UseSemanticClassification,
			TopK:        1,
		})
		if err != nil {
			if !faults.IsValidation(err) {
				summary.RecordError(sig.SourceID, "classify", err)
			}
			continue
		}
		if fellBack {
			summary.Fallbacks++
		}
		if len(matches) > 0 {
			categories[sig.ID] = names[matches[0].CandidateID]
		}
	}
	return categories
}

// featureCandidates loads the feature taxonomy with whatever cached vectors
// exist. Missing vectors are fine; those candidates score by keywords.
func (s *CorrelationService) featureCandidates(ctx context.Context) []classify.Candidate {
	features, err := s.features.List(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "loading feature taxonomy failed", "error", err)
		return nil
	}

	var vectors map[int64][]float64
	if s.cache != nil {
		vectors = s.cache.GetAll(ctx, embedding.KindFeature)
	}

	candidates := make([]classify.Candidate, len(features))
	for i, f := range features {
		candidates[i] = classify.Candidate{
			ID:     f.ID,
			Kind:   embedding.KindFeature,
			Text:   f.Text(),
			Vector: vectors[f.ID],
		}
	}
	return candidates
}
