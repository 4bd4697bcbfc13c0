package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driving"
	"github.com/Samwindheim/finance-lab-project-v2/internal/logger"
)

// Ensure ExtractionOrchestrator implements the interface.
var _ driving.ExtractionService = (*ExtractionOrchestrator)(nil)

// ExtractionOrchestrator coordinates the retrieval-and-merge pipeline:
// it resolves the issue's documents from the catalog, builds or reuses
// each document's semantic index, retrieves evidence per field, calls
// the extractor, stages validated results and merges everything into
// one issue-level record.
type ExtractionOrchestrator struct {
	catalog   driven.SourceCatalog
	fetcher   driven.ContentFetcher
	router    *FieldRouter
	indexer   driving.IndexService
	extractor driven.Extractor
	prompts   driven.PromptStore
	staging   driven.StagingStore
	renderer  driven.PageRenderer
	merger    *MergeEngine
	retry     RetryPolicy
}

// NewExtractionOrchestrator creates an extraction orchestrator.
// The renderer is optional; when nil, image-requiring fields degrade
// to text-only extraction.
func NewExtractionOrchestrator(
	catalog driven.SourceCatalog,
	fetcher driven.ContentFetcher,
	router *FieldRouter,
	indexer driving.IndexService,
	extractor driven.Extractor,
	prompts driven.PromptStore,
	staging driven.StagingStore,
	renderer driven.PageRenderer,
	merger *MergeEngine,
	retry RetryPolicy,
) *ExtractionOrchestrator {
	return &ExtractionOrchestrator{
		catalog:   catalog,
		fetcher:   fetcher,
		router:    router,
		indexer:   indexer,
		extractor: extractor,
		prompts:   prompts,
		staging:   staging,
		renderer:  renderer,
		merger:    merger,
		retry:     retry,
	}
}

// Run executes an extraction run and returns the merged issue record.
// Documents are processed sequentially; ctx is checked between
// documents, so an aborted run still returns the partial record it
// produced, marked incomplete. Field-level failures are isolated and
// reported on the record.
func (o *ExtractionOrchestrator) Run(ctx context.Context, req driving.ExtractionRequest) (*domain.IssueRecord, error) {
	issueID, docs, err := o.resolveTargets(ctx, req)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	logger.Section("Extraction Run")
	logger.Info("Run %s, issue %s: %d document(s)", runID, issueID, len(docs))

	fields := req.Fields
	if len(fields) == 0 {
		fields = o.router.Fields()
	}

	var (
		results   []domain.ExtractionResult
		failures  []domain.FieldFailure
		processed []string
		complete  = true
		// satisfied maps a field to the source-type preference rank
		// that already yielded data, for the short-circuit below.
		satisfied = make(map[domain.ExtractionField]int)
	)

	for i, doc := range docs {
		if i > 0 {
			select {
			case <-ctx.Done():
				logger.Warn("Run cancelled after %d of %d documents", i, len(docs))
				complete = false
			default:
			}
			if !complete {
				break
			}
		}

		docResults, docFailures, ok := o.processDocument(ctx, doc, fields, satisfied)
		results = append(results, docResults...)
		failures = append(failures, docFailures...)
		if ok {
			processed = append(processed, doc.ID)
		} else {
			complete = false
		}
	}

	record := o.merger.Merge(issueID, results)
	record.Documents = processed
	record.Failures = failures
	record.Complete = complete && len(failures) == 0

	if len(results) > 0 {
		outputDir := req.OutputDir
		if outputDir == "" {
			outputDir = "."
		}
		if _, err := WriteArtifact(outputDir, issueID, results); err != nil {
			logger.Warn("Failed to write extraction output: %v", err)
		}
	}

	logger.Info("Run finished: %d field result(s), %d failure(s)", len(results), len(failures))
	return record, nil
}

// resolveTargets determines the issue and document set for the run.
// Document mode (SourceLink set) narrows the run to one document and
// resolves its issue through the catalog when not given explicitly.
func (o *ExtractionOrchestrator) resolveTargets(
	ctx context.Context, req driving.ExtractionRequest,
) (string, []domain.Document, error) {
	if req.SourceLink != "" {
		doc, err := o.catalog.FindByLink(ctx, req.SourceLink)
		if err != nil {
			return "", nil, fmt.Errorf("resolve document %q: %w", req.SourceLink, err)
		}
		issueID := req.IssueID
		if issueID == "" {
			issueID = doc.IssueID
		}
		if issueID == "" {
			resolved, err := o.catalog.ResolveIssueID(ctx, req.SourceLink)
			if err != nil {
				return "", nil, fmt.Errorf("resolve issue for %q: %w", req.SourceLink, err)
			}
			issueID = resolved
		}
		return issueID, []domain.Document{*doc}, nil
	}

	if req.IssueID == "" {
		return "", nil, errors.New("either a source link or an issue ID is required")
	}
	docs, err := o.catalog.FindByIssue(ctx, req.IssueID)
	if err != nil {
		return "", nil, fmt.Errorf("find documents for issue %s: %w", req.IssueID, err)
	}
	if len(docs) == 0 {
		return "", nil, fmt.Errorf("issue %s: %w", req.IssueID, domain.ErrDocumentNotFound)
	}
	return req.IssueID, docs, nil
}

// processDocument runs every requested field against one document.
// Returns ok=false when the document itself could not be processed
// (fetch or index failure); per-field failures do not affect ok.
func (o *ExtractionOrchestrator) processDocument(
	ctx context.Context,
	doc domain.Document,
	fields []domain.ExtractionField,
	satisfied map[domain.ExtractionField]int,
) ([]domain.ExtractionResult, []domain.FieldFailure, bool) {
	logger.Section(fmt.Sprintf("Document %s (%s)", doc.ID, doc.SourceType))

	exists, err := o.indexer.Exists(ctx, doc.ID)
	if err != nil {
		return nil, []domain.FieldFailure{{DocumentID: doc.ID, Reason: fmt.Sprintf("check index: %v", err)}}, false
	}
	if !exists {
		var content []byte
		err := o.retry.Do(ctx, "fetch "+doc.ID, func(ctx context.Context) error {
			var ferr error
			content, ferr = o.fetcher.Fetch(ctx, doc)
			return ferr
		})
		if err != nil {
			return nil, []domain.FieldFailure{{DocumentID: doc.ID, Reason: fmt.Sprintf("fetch content: %v", err)}}, false
		}
		if _, err := o.indexer.Build(ctx, doc, content); err != nil {
			return nil, []domain.FieldFailure{{DocumentID: doc.ID, Reason: fmt.Sprintf("build index: %v", err)}}, false
		}
	}

	units, err := o.indexer.Units(ctx, doc.ID)
	if err != nil {
		return nil, []domain.FieldFailure{{DocumentID: doc.ID, Reason: fmt.Sprintf("load units: %v", err)}}, false
	}

	var results []domain.ExtractionResult
	var failures []domain.FieldFailure
	for _, field := range fields {
		if o.shortCircuited(field, doc.SourceType, satisfied) {
			logger.Debug("Field %s already extracted from a preferred source type, skipping %s", field, doc.ID)
			continue
		}

		res, err := o.extractField(ctx, doc, field, units)
		if err != nil {
			if errors.Is(err, errFieldNotApplicable) {
				continue
			}
			logger.Warn("Field %s on %s failed: %v", field, doc.ID, err)
			failures = append(failures, domain.FieldFailure{DocumentID: doc.ID, Field: field, Reason: err.Error()})
			continue
		}
		if res == nil {
			continue
		}

		results = append(results, *res)
		o.stage(ctx, doc, *res)
		if payloadHasData(res.Payload) {
			o.markSatisfied(field, doc.SourceType, satisfied)
		}
	}
	return results, failures, true
}

// errFieldNotApplicable signals a routed skip, not a failure.
var errFieldNotApplicable = errors.New("field not applicable")

// extractField runs retrieval and extraction for one (document, field)
// pair. A nil result with nil error means retrieval found nothing
// worth extracting.
func (o *ExtractionOrchestrator) extractField(
	ctx context.Context, doc domain.Document, field domain.ExtractionField, units []domain.Unit,
) (*domain.ExtractionResult, error) {
	plan, err := o.router.Route(field, doc.SourceType, doc.IssueType)
	if err != nil {
		return nil, err
	}
	if !plan.Applicable {
		return nil, errFieldNotApplicable
	}

	hits, err := unionQuery(ctx, plan.Queries, plan.TopK, func(ctx context.Context, q string, topK int) ([]domain.UnitHit, error) {
		return o.indexer.Query(ctx, doc.ID, q, topK)
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(hits) == 0 {
		return nil, errors.New("no relevant units retrieved")
	}

	evidence, pages := o.selectEvidence(doc, plan, hits, units)
	if len(evidence) == 0 {
		return nil, errors.New("no evidence units selected")
	}

	var images [][]byte
	if plan.RequiresImage && doc.SourceType == domain.SourceTypePDF {
		images = o.renderPages(ctx, doc, pages)
	}

	prompt, err := o.prompts.Load(field.String())
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}

	var payload json.RawMessage
	err = o.retry.Do(ctx, fmt.Sprintf("extract %s", field), func(ctx context.Context) error {
		var extractErr error
		payload, extractErr = o.extractor.Extract(ctx, driven.ExtractionRequest{
			Field:      field,
			Prompt:     prompt,
			Units:      evidence,
			Images:     images,
			SourceType: doc.SourceType,
		})
		return extractErr
	})
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	if err := domain.ValidatePayload(field, payload); err != nil {
		return nil, err
	}

	return &domain.ExtractionResult{
		DocumentID:  doc.ID,
		SourceURL:   doc.SourceURL,
		IssueID:     doc.IssueID,
		Field:       field,
		SourceType:  doc.SourceType,
		Payload:     payload,
		SourcePages: pages,
		Model:       o.extractor.ModelName(),
		ExtractedAt: time.Now().UTC(),
	}, nil
}

// selectEvidence picks the units to send. PDFs go through page
// selection so multi-page tables are captured; HTML sends every block,
// matching how press releases are short enough to fit whole. The
// returned pages are exactly what will be sent, recorded verbatim as
// provenance.
func (o *ExtractionOrchestrator) selectEvidence(
	doc domain.Document, plan *domain.RoutePlan, hits []domain.UnitHit, units []domain.Unit,
) ([]domain.Unit, []int) {
	if doc.SourceType == domain.SourceTypeHTML {
		return units, nil
	}

	pages := SelectPages(hits, plan.Strategy, len(units))
	evidence := make([]domain.Unit, 0, len(pages))
	for _, p := range pages {
		if p >= 1 && p <= len(units) {
			evidence = append(evidence, units[p-1])
		}
	}
	logger.Debug("Selected pages %v for extraction", pages)
	return evidence, pages
}

// renderPages renders the selected PDF pages to images. Rendering is
// best-effort: on any failure the field degrades to text-only
// extraction rather than failing.
func (o *ExtractionOrchestrator) renderPages(ctx context.Context, doc domain.Document, pages []int) [][]byte {
	if o.renderer == nil || !o.extractor.SupportsImages() {
		return nil
	}
	path, err := o.fetcher.LocalPath(doc)
	if err != nil {
		logger.Warn("No local file for %s, extracting text only: %v", doc.ID, err)
		return nil
	}

	images := make([][]byte, 0, len(pages))
	for _, p := range pages {
		img, err := o.renderer.Render(ctx, domain.PageImageRef{DocumentPath: path, Page: p})
		if err != nil {
			logger.Warn("Render page %d of %s failed, extracting text only: %v", p, doc.ID, err)
			return nil
		}
		images = append(images, img)
	}
	return images
}

// stage upserts a validated result into the review staging store.
// Staging failures are logged, not fatal: the merged record and output
// file still carry the result.
func (o *ExtractionOrchestrator) stage(ctx context.Context, doc domain.Document, res domain.ExtractionResult) {
	if o.staging == nil {
		return
	}
	entry := domain.StagingEntry{
		SourceURL: doc.SourceURL,
		Field:     res.Field,
		IssueID:   res.IssueID,
		DocID:     doc.ID,
		Payload:   res.Payload,
		Status:    domain.StagingStatusPending,
		UpdatedAt: res.ExtractedAt,
	}
	if err := o.staging.Upsert(ctx, entry); err != nil {
		logger.Warn("Staging upsert for %s/%s failed: %v", doc.SourceURL, res.Field, err)
	}
}

// shortCircuited reports whether the field already has data from a
// source type listed earlier in its preference order, meaning this
// document can be skipped.
func (o *ExtractionOrchestrator) shortCircuited(
	field domain.ExtractionField, sourceType domain.SourceType, satisfied map[domain.ExtractionField]int,
) bool {
	rank, found := satisfied[field]
	if !found {
		return false
	}
	def, err := o.router.Definition(field)
	if err != nil {
		return true
	}
	return sourceTypeRank(def, sourceType) > rank
}

// markSatisfied records that the field yielded data from the given
// source type.
func (o *ExtractionOrchestrator) markSatisfied(
	field domain.ExtractionField, sourceType domain.SourceType, satisfied map[domain.ExtractionField]int,
) {
	def, err := o.router.Definition(field)
	if err != nil {
		return
	}
	rank := sourceTypeRank(def, sourceType)
	if existing, found := satisfied[field]; !found || rank < existing {
		satisfied[field] = rank
	}
}

// sourceTypeRank returns the position of the source type in the
// field's preference order.
func sourceTypeRank(def *domain.FieldDefinition, sourceType domain.SourceType) int {
	for i, st := range def.SourceTypes {
		if st == sourceType {
			return i
		}
	}
	return len(def.SourceTypes)
}

// payloadHasData reports whether an extraction payload carries any
// content. Empty lists, empty objects and null do not satisfy a field,
// so lower-preference source types still get tried.
func payloadHasData(payload json.RawMessage) bool {
	trimmed := bytes.TrimSpace(payload)
	switch string(trimmed) {
	case "", "null", "[]", "{}":
		return false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err == nil {
		for _, v := range m {
			if s := string(bytes.TrimSpace(v)); s != "null" && s != "" {
				return true
			}
		}
		return false
	}
	return true
}
