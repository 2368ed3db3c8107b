package services

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/govairn/govairn-backend/internal/data/repos"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/domain/governance"
	"github.com/govairn/govairn-backend/internal/observability"
	"github.com/govairn/govairn-backend/internal/platform/apierr"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/platform/snapshot"
)

// SyncReport counts what one space sync saw and wrote. Totals are always
// derived from the explicit per-state queries.
type SyncReport struct {
	Space    string `json:"space"`
	Active   int    `json:"active"`
	Closed   int    `json:"closed"`
	Pending  int    `json:"pending"`
	Total    int    `json:"total"`
	Upserted int    `json:"upserted"`
	Enqueued int    `json:"enqueued"`

	// Truncated is set when a state query stopped at the page cap.
	Truncated bool `json:"truncated"`
}

type ProposalSync interface {
	SyncSpace(ctx context.Context, space, state string) (SyncReport, error)
	SyncAll(ctx context.Context) ([]SyncReport, error)
}

type SyncConfig struct {
	Spaces   []string
	State    string
	PageSize int
	// MaxPages bounds the pages read per state query.
	MaxPages int
}

type proposalSync struct {
	log          *logger.Logger
	client       snapshot.Client
	daoRepo      repos.DAORepo
	proposalRepo repos.ProposalRepo
	queueRepo    repos.QueueRepo
	cfg          SyncConfig
}

func NewProposalSync(log *logger.Logger, client snapshot.Client, daoRepo repos.DAORepo, proposalRepo repos.ProposalRepo, queueRepo repos.QueueRepo, cfg SyncConfig) ProposalSync {
	if cfg.PageSize <= 0 || cfg.PageSize > snapshot.MaxPageSize {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.State == "" {
		cfg.State = snapshot.StateAll
	}
	return &proposalSync{
		log:          log.With("service", "ProposalSync"),
		client:       client,
		daoRepo:      daoRepo,
		proposalRepo: proposalRepo,
		queueRepo:    queueRepo,
		cfg:          cfg,
	}
}

func (s *proposalSync) SyncAll(ctx context.Context) ([]SyncReport, error) {
	reports := make([]SyncReport, 0, len(s.cfg.Spaces))
	for _, space := range s.cfg.Spaces {
		r, err := s.SyncSpace(ctx, space, s.cfg.State)
		if err != nil {
			return reports, fmt.Errorf("sync %s: %w", space, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (s *proposalSync) SyncSpace(ctx context.Context, space, state string) (SyncReport, error) {
	report := SyncReport{Space: space}
	if space == "" {
		return report, apierr.Invalid("space is required")
	}
	if state == "" {
		state = snapshot.StateAll
	}
	if !snapshot.ValidState(state) {
		return report, apierr.Invalid("unknown snapshot state %q", state)
	}

	ctx, span := observability.StartSpan(ctx, "snapshot.sync",
		attribute.String("snapshot.space", space), attribute.String("snapshot.state", state))
	defer span.End()

	var active, closed, pending []snapshot.Proposal
	var capped [3]bool
	g, gctx := errgroup.WithContext(ctx)
	if state == snapshot.StateAll || state == snapshot.StateActive {
		g.Go(func() (err error) {
			active, capped[0], err = s.fetchAll(gctx, space, snapshot.StateActive)
			return err
		})
	}
	if state == snapshot.StateAll || state == snapshot.StateClosed {
		g.Go(func() (err error) {
			closed, capped[1], err = s.fetchAll(gctx, space, snapshot.StateClosed)
			return err
		})
	}
	if state == snapshot.StatePending {
		g.Go(func() (err error) {
			pending, capped[2], err = s.fetchAll(gctx, space, snapshot.StatePending)
			return err
		})
	}
	var sp snapshot.Space
	g.Go(func() (err error) {
		sp, err = s.client.Space(gctx, space)
		return err
	})
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Active = len(active)
	report.Closed = len(closed)
	report.Pending = len(pending)
	report.Total = report.Active + report.Closed + report.Pending
	report.Truncated = capped[0] || capped[1] || capped[2]

	dbc := dbctx.New(ctx)
	name := sp.Name
	if name == "" {
		name = space
	}
	dao, err := s.daoRepo.UpsertBySpace(dbc, space, name)
	if err != nil {
		return report, fmt.Errorf("upsert dao: %w", err)
	}

	all := append(append(append([]snapshot.Proposal{}, active...), closed...), pending...)
	for _, raw := range all {
		stored, _, err := s.proposalRepo.UpsertByExternalID(dbc, toProposal(space, dao, raw))
		if err != nil {
			return report, fmt.Errorf("upsert proposal %s: %w", raw.ID, err)
		}
		report.Upserted++
		if stored.Status != types.ProposalActive {
			continue
		}
		created, err := s.queueRepo.Enqueue(dbc, stored.ID)
		if err != nil {
			return report, fmt.Errorf("enqueue proposal %s: %w", raw.ID, err)
		}
		if created {
			report.Enqueued++
		}
	}

	s.log.Info("Snapshot space synced",
		"space", space,
		"state", state,
		"active", report.Active,
		"closed", report.Closed,
		"total", report.Total,
		"enqueued", report.Enqueued,
	)
	return report, nil
}

// fetchAll pages through one state. The hub can repeat rows across pages, so
// results are de-duplicated by id. It reports whether the page cap cut the
// listing short.
func (s *proposalSync) fetchAll(ctx context.Context, space, state string) ([]snapshot.Proposal, bool, error) {
	var out []snapshot.Proposal
	full := false
	for page := 0; page < s.cfg.MaxPages; page++ {
		batch, err := s.client.Proposals(ctx, space, state, s.cfg.PageSize, page*s.cfg.PageSize)
		if err != nil {
			return nil, false, fmt.Errorf("fetch %s proposals: %w", state, err)
		}
		out = append(out, batch...)
		full = len(batch) >= s.cfg.PageSize
		if !full {
			break
		}
	}
	if full {
		s.log.Warn("Snapshot page cap reached; results truncated",
			"space", space, "state", state, "max_pages", s.cfg.MaxPages, "page_size", s.cfg.PageSize)
	}
	return lo.UniqBy(out, func(p snapshot.Proposal) string { return p.ID }), full, nil
}

func toProposal(space string, dao *types.DAO, sp snapshot.Proposal) *types.Proposal {
	link := sp.Link
	if link == "" {
		link = fmt.Sprintf("https://snapshot.org/#/%s/proposal/%s", space, sp.ID)
	}
	return &types.Proposal{
		ExternalID:  sp.ID,
		DAOID:       dao.ID,
		Title:       sp.Title,
		Description: sp.Body,
		Choices:     governance.EncodeChoices(sp.Choices),
		Status:      governance.StatusFromSnapshot(sp.State),
		StartTime:   time.Unix(sp.Start, 0).UTC(),
		EndTime:     time.Unix(sp.End, 0).UTC(),
		URL:         link,
	}
}
