package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tbrennem-source/plancheck/internal/consistency"
	"github.com/tbrennem-source/plancheck/internal/contract"
	"github.com/tbrennem-source/plancheck/internal/fingerprint"
	"github.com/tbrennem-source/plancheck/internal/jobs"
	"github.com/tbrennem-source/plancheck/internal/prompts"
	"github.com/tbrennem-source/plancheck/internal/providers"
	"github.com/tbrennem-source/plancheck/internal/render"
	"github.com/tbrennem-source/plancheck/internal/sampler"
	"github.com/tbrennem-source/plancheck/internal/store"
	"github.com/tbrennem-source/plancheck/internal/types"
	"github.com/tbrennem-source/plancheck/internal/usage"
)

// Call types recorded in the usage summary.
const (
	callTitleBlock  = "title_block"
	callAnnotations = "annotations"
	callCoverPage   = "cover_page"
	callHatching    = "hatching"
)

// maxHatchingPages bounds the hatching-density stage.
const maxHatchingPages = 2

// renderWorkers bounds concurrent page rasterization within one job.
const renderWorkers = 4

// Store is the persistence surface the pipeline needs.
type Store interface {
	GetJob(ctx context.Context, id string) (*jobs.Job, error)
	UpdateJob(ctx context.Context, job *jobs.Job) error
	SaveSession(ctx context.Context, session *store.Session) error
	fingerprint.CandidateSource
	fingerprint.VersionSource
}

// Config tunes one pipeline instance.
type Config struct {
	DPI         int
	CallTimeout time.Duration
	MaxTokens   int
	Model       string
	Rates       usage.Rates
}

// Pipeline runs analysis jobs to a terminal state. It implements
// jobs.Runner; one instance serves every worker.
type Pipeline struct {
	client   providers.Client
	renderer render.Renderer
	store    Store
	matcher  *fingerprint.Matcher
	logger   *slog.Logger

	mu  sync.RWMutex
	cfg Config
}

var _ jobs.Runner = (*Pipeline)(nil)

// New creates a pipeline.
func New(client providers.Client, renderer render.Renderer, st Store, logger *slog.Logger, cfg Config) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		client:   client,
		renderer: renderer,
		store:    st,
		matcher:  fingerprint.NewMatcher(st, logger),
		logger:   logger,
		cfg:      normalizeConfig(cfg),
	}
}

// Reconfigure swaps the tuning parameters. Jobs already running keep the
// snapshot they started with; subsequent jobs pick up the new values. This
// is the target of config hot reload.
func (p *Pipeline) Reconfigure(cfg Config) {
	p.mu.Lock()
	p.cfg = normalizeConfig(cfg)
	p.mu.Unlock()
}

func (p *Pipeline) config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

func normalizeConfig(cfg Config) Config {
	if cfg.DPI <= 0 {
		cfg.DPI = render.DefaultDPI
	}
	if cfg.Rates == (usage.Rates{}) {
		cfg.Rates = usage.DefaultRates
	}
	return cfg
}

// Run executes one job end to end. Every failure path lands the job in a
// terminal state; nothing raises past this method.
func (p *Pipeline) Run(ctx context.Context, job *jobs.Job) {
	log := p.logger.With("job_id", job.ID)

	if err := job.Transition(jobs.StatusProcessing); err != nil {
		log.Error("cannot start job", "error", err)
		return
	}
	if err := p.store.UpdateJob(ctx, job); err != nil {
		// A finalized row means the job was cancelled before we started.
		if errors.Is(err, store.ErrJobFinalized) {
			log.Info("job finalized before processing began, discarding")
		} else {
			log.Error("persist processing state", "error", err)
		}
		return
	}

	cfg := p.config()
	summary := usage.NewSummary(cfg.Rates)
	orch := providers.NewOrchestrator(p.client, summary, log)

	result := p.analyze(ctx, job, orch, cfg)
	result.Usage = summary.Snapshot()

	p.finalize(ctx, job, result)
}

// analyze produces the check list, extractions, and annotations for one
// job. It never returns nil and never errors: an unanalyzable job yields
// the full check list marked skip. The config snapshot is taken once per
// job, so a reload mid-job never mixes tunings.
func (p *Pipeline) analyze(ctx context.Context, job *jobs.Job, orch *providers.Orchestrator, cfg Config) *Result {
	if !orch.Configured() {
		return &Result{Checks: SkipAll("no vision credential configured")}
	}

	pageCount, err := p.renderer.PageCount(ctx, job.PDF)
	if err != nil || pageCount == 0 {
		return &Result{Checks: SkipAll("pdf could not be rendered")}
	}

	p.progress(ctx, job, "rendering", fmt.Sprintf("%d pages", pageCount))
	sampled := sampler.Select(pageCount, job.Mode)
	images := p.renderPages(ctx, job.PDF, sampled, cfg.DPI)

	checks := make(map[string]Check, ChecklistSize)
	result := &Result{SampledPages: sampled, PageCount: pageCount}

	// Cover stage: one call feeds both cover checks.
	p.progress(ctx, job, "analyzing", "cover page")
	var cover *contract.CoverInfo
	if coverPNG, ok := images[0]; ok {
		res := orch.Call(ctx, &providers.Request{
			Image:        coverPNG,
			Prompt:       prompts.CoverPage(),
			SystemPrompt: prompts.System(),
			Model:        cfg.Model,
			MaxTokens:    cfg.MaxTokens,
			Timeout:      cfg.CallTimeout,
			PageNumber:   1,
			CallType:     callCoverPage,
		})
		if res.Success {
			cover = contract.DecodeCoverPage(res.Text)
		}
	}
	checks[CheckSheetCount], checks[CheckCoverStampArea] = coverChecks(cover, pageCount)
	if cover != nil && cover.PermitNumber != "" && job.PermitNumber == "" {
		job.PermitNumber = cover.PermitNumber
	}

	// Page stage: title-block and annotation calls fan out together.
	p.progress(ctx, job, "analyzing", fmt.Sprintf("%d sampled pages", len(sampled)))
	var reqs []*providers.Request
	for _, pageIndex := range sampled {
		png, ok := images[pageIndex]
		if !ok {
			continue
		}
		pageNumber := pageIndex + 1
		reqs = append(reqs, &providers.Request{
			Image:        png,
			Prompt:       prompts.TitleBlock(),
			SystemPrompt: prompts.System(),
			Model:        cfg.Model,
			MaxTokens:    cfg.MaxTokens,
			Timeout:      cfg.CallTimeout,
			PageNumber:   pageNumber,
			CallType:     callTitleBlock,
		})
		if job.Mode != types.ModeCompliance {
			reqs = append(reqs, &providers.Request{
				Image:        png,
				Prompt:       prompts.Annotations(),
				SystemPrompt: prompts.System(),
				Model:        cfg.Model,
				MaxTokens:    cfg.MaxTokens,
				Timeout:      cfg.CallTimeout,
				PageNumber:   pageNumber,
				CallType:     callAnnotations,
			})
		}
	}

	for _, res := range orch.Batch(ctx, reqs, true) {
		if !res.Success {
			continue
		}
		switch res.CallType {
		case callTitleBlock:
			if ext := contract.DecodeTitleBlock(res.Text, res.PageNumber); ext != nil {
				result.Extractions = append(result.Extractions, *ext)
			}
		case callAnnotations:
			result.Annotations = append(result.Annotations, contract.DecodeAnnotations(res.Text, res.PageNumber)...)
		}
	}
	sort.Slice(result.Extractions, func(i, j int) bool {
		return result.Extractions[i].PageNumber < result.Extractions[j].PageNumber
	})
	sort.Slice(result.Annotations, func(i, j int) bool {
		return result.Annotations[i].PageNumber < result.Annotations[j].PageNumber
	})

	// Assessment stage: pure functions over fetched data, zero calls.
	ext := result.Extractions
	checks[CheckAddress] = presenceCheck(ext, "project address", func(e types.PageExtraction) bool { return e.ProjectAddress != "" })
	checks[CheckFirmName] = presenceCheck(ext, "firm name", func(e types.PageExtraction) bool { return e.FirmName != "" })
	checks[CheckSheetNumbers] = presenceCheck(ext, "sheet number", func(e types.PageExtraction) bool { return e.SheetNumber != "" })
	checks[CheckSheetNames] = presenceCheck(ext, "sheet name", func(e types.PageExtraction) bool { return e.SheetName != "" })
	checks[CheckBlankArea] = presenceCheck(ext, "blank stamp area", func(e types.PageExtraction) bool { return e.HasBlankArea })
	checks[CheckConsistency] = consistencyCheck(consistency.Score(ext))
	checks[CheckStamp] = anyPageCheck(ext, "professional stamp", func(e types.PageExtraction) bool { return e.HasStamp })
	checks[CheckSignature] = anyPageCheck(ext, "signature", func(e types.PageExtraction) bool { return e.HasSignature })

	// Hatching stage: up to two non-cover pages, skipped in compliance mode.
	checks[CheckHatching] = p.hatchingStage(ctx, job, orch, cfg, sampled, images)

	result.Checks = orderChecks(checks)
	return result
}

func (p *Pipeline) hatchingStage(ctx context.Context, job *jobs.Job, orch *providers.Orchestrator, cfg Config, sampled []int, images map[int][]byte) Check {
	if job.Mode == types.ModeCompliance {
		return Check{Status: CheckSkip, Detail: "not run in compliance mode"}
	}

	var reqs []*providers.Request
	for _, pageIndex := range sampled {
		if pageIndex == 0 || len(reqs) == maxHatchingPages {
			continue
		}
		png, ok := images[pageIndex]
		if !ok {
			continue
		}
		reqs = append(reqs, &providers.Request{
			Image:        png,
			Prompt:       prompts.Hatching(),
			SystemPrompt: prompts.System(),
			Model:        cfg.Model,
			MaxTokens:    cfg.MaxTokens,
			Timeout:      cfg.CallTimeout,
			PageNumber:   pageIndex + 1,
			CallType:     callHatching,
		})
	}
	if len(reqs) == 0 {
		return Check{Status: CheckSkip, Detail: "no non-cover pages sampled"}
	}

	var infos []*contract.HatchingInfo
	for _, res := range orch.Batch(ctx, reqs, true) {
		if res.Success {
			infos = append(infos, contract.DecodeHatching(res.Text))
		}
	}
	return hatchingCheck(infos)
}

// renderPages rasterizes the sampled pages with bounded concurrency. A
// page that fails to render is simply absent from the returned map; its
// checks degrade instead of aborting siblings.
func (p *Pipeline) renderPages(ctx context.Context, pdf []byte, sampled []int, dpi int) map[int][]byte {
	images := make(map[int][]byte, len(sampled))
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, renderWorkers)
	)
	for _, pageIndex := range sampled {
		wg.Add(1)
		sem <- struct{}{}
		go func(pageIndex int) {
			defer wg.Done()
			defer func() { <-sem }()
			png, err := p.renderer.RenderPage(ctx, pdf, pageIndex, dpi)
			if err != nil {
				p.logger.Warn("render page failed", "page", pageIndex+1, "error", err)
				return
			}
			mu.Lock()
			images[pageIndex] = png
			mu.Unlock()
		}(pageIndex)
	}
	wg.Wait()
	return images
}

// finalize fingerprints the job, links it into a version chain, persists
// the session, and lands the job in a terminal state. A job whose row was
// finalized elsewhere (cancelled, stale) has its results discarded here.
func (p *Pipeline) finalize(ctx context.Context, job *jobs.Job, result *Result) {
	log := p.logger.With("job_id", job.ID)

	// The job's context may already be cancelled; finalization uses its
	// own deadline so bookkeeping still completes.
	finCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if ctx.Err() != nil {
		p.discard(finCtx, job, log)
		return
	}

	p.progress(finCtx, job, "finalizing", "linking versions")

	job.Structural = fingerprint.Extract(result.Extractions)

	group := job.ID
	if match, err := p.matcher.FindMatchingJob(finCtx, job.Ref()); err != nil {
		log.Warn("version matching failed, seeding a new group", "error", err)
	} else if match != nil {
		job.MatchMethod = match.Method
		job.MatchConfidence = match.Confidence
		if match.Job.VersionGroup != "" {
			group = match.Job.VersionGroup
		} else {
			group = match.JobID
		}
	}

	version, parentID, err := fingerprint.AssignVersion(finCtx, p.store, group)
	if err != nil {
		log.Warn("version assignment failed, seeding a new group", "error", err)
		group, version, parentID = job.ID, 1, ""
	}
	if err := job.AssignVersion(group, version, parentID); err != nil {
		log.Error("record version", "error", err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		p.fail(finCtx, job, fmt.Errorf("encode result: %w", err), log)
		return
	}
	session := &store.Session{
		JobID:       job.ID,
		Extractions: result.Extractions,
		Annotations: result.Annotations,
		Result:      payload,
	}
	if err := p.store.SaveSession(finCtx, session); err != nil {
		p.fail(finCtx, job, fmt.Errorf("save session: %w", err), log)
		return
	}

	if err := job.Transition(jobs.StatusCompleted); err != nil {
		log.Error("complete job", "error", err)
		return
	}
	if err := p.store.UpdateJob(finCtx, job); err != nil {
		if errors.Is(err, store.ErrJobFinalized) {
			log.Info("job finalized elsewhere, results discarded")
			return
		}
		log.Error("persist completed job", "error", err)
		return
	}
	log.Info("job completed",
		"version_group", job.VersionGroup,
		"version", job.VersionNumber,
		"calls", result.Usage.TotalCalls,
		"cost_usd", result.Usage.EstimatedCostUSD,
	)
}

func (p *Pipeline) discard(ctx context.Context, job *jobs.Job, log *slog.Logger) {
	log.Info("job cancelled, discarding results")
	if err := job.Transition(jobs.StatusCancelled); err != nil {
		return
	}
	if err := p.store.UpdateJob(ctx, job); err != nil && !errors.Is(err, store.ErrJobFinalized) {
		log.Error("persist cancelled job", "error", err)
	}
}

func (p *Pipeline) fail(ctx context.Context, job *jobs.Job, cause error, log *slog.Logger) {
	log.Error("job failed", "error", cause)
	job.ErrorMessage = cause.Error()
	if err := job.Transition(jobs.StatusFailed); err != nil {
		return
	}
	if err := p.store.UpdateJob(ctx, job); err != nil && !errors.Is(err, store.ErrJobFinalized) {
		log.Error("persist failed job", "error", err)
	}
}

// progress writes a coarse checkpoint; failures only log, they never
// affect the run.
func (p *Pipeline) progress(ctx context.Context, job *jobs.Job, stage, detail string) {
	job.SetProgress(stage, detail)
	if err := p.store.UpdateJob(ctx, job); err != nil && !errors.Is(err, store.ErrJobFinalized) {
		p.logger.Debug("persist progress", "job_id", job.ID, "error", err)
	}
}
