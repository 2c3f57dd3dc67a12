package usecase

import (
	"context"
	"fmt"

	"github.com/jochuk/clubdesk/external/clubapi"
	"github.com/jochuk/clubdesk/internal/domain/member"
	"github.com/jochuk/clubdesk/internal/platform/cache"
	"github.com/jochuk/clubdesk/internal/platform/logging"
)

type memberBackend interface {
	ListPlayers(ctx context.Context) ([]clubapi.Player, error)
}

const cacheKeyMembers = "members:list"

// MemberService lists the club roster and the configured committee.
type MemberService struct {
	api        memberBackend
	cache      *cache.Store
	executives []member.Executive
	logger     *logging.Logger
}

func NewMemberService(api memberBackend, cacheStore *cache.Store, executives []member.Executive, logger *logging.Logger) *MemberService {
	if len(executives) == 0 {
		executives = member.DefaultExecutives()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MemberService{
		api:        api,
		cache:      cacheStore,
		executives: executives,
		logger:     logger,
	}
}

// List returns every registered member, cached per TTL.
func (s *MemberService) List(ctx context.Context) ([]member.Member, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MemberService.List")
	defer span.End()

	if s.cache == nil {
		return s.load(ctx)
	}

	value, err := s.cache.GetOrLoad(ctx, cacheKeyMembers, func(ctx context.Context) (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	members, ok := value.([]member.Member)
	if !ok {
		return nil, fmt.Errorf("unexpected cached member list type %T", value)
	}
	return members, nil
}

// IDMap returns the roster's name-to-id lookup.
func (s *MemberService) IDMap(ctx context.Context) (map[string]int64, error) {
	members, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return member.IDByName(members), nil
}

// Executives returns the committee listing from config.
func (s *MemberService) Executives() []member.Executive {
	out := make([]member.Executive, len(s.executives))
	copy(out, s.executives)
	return out
}

func (s *MemberService) load(ctx context.Context) ([]member.Member, error) {
	players, err := s.api.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]member.Member, 0, len(players))
	for _, p := range players {
		m := member.Member{
			ID:        p.ID,
			Name:      p.Name,
			CreatedAt: p.CreatedAt,
		}
		if err := m.Validate(); err != nil {
			s.logger.WarnContext(ctx, "skipping malformed member row",
				"player_id", p.ID,
				"error", err,
			)
			continue
		}
		members = append(members, m)
	}
	return members, nil
}
