package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/domain/entity"
	"github.com/garyjia/temple-membership/pkg/utils"
)

const maxLookupResults = 20

// MemberService answers referral questions from the member register
type MemberService interface {
	port.MemberDirectory

	// Lookup searches members for the referral picker
	Lookup(ctx context.Context, query string) ([]*entity.Member, error)
}

type memberServiceImpl struct {
	memberRepo port.MemberRepository
	logger     Logger
}

// NewMemberService creates a MemberService backed by the member register
func NewMemberService(memberRepo port.MemberRepository, logger Logger) MemberService {
	return &memberServiceImpl{
		memberRepo: memberRepo,
		logger:     logger,
	}
}

// IsActiveMember resolves a permanent member ID or IC number to an active member
func (s *memberServiceImpl) IsActiveMember(ctx context.Context, memberIDOrIC string) (*entity.MemberLookup, error) {
	key := strings.TrimSpace(memberIDOrIC)
	if key == "" {
		return &entity.MemberLookup{Valid: false}, nil
	}

	member, err := s.memberRepo.GetByMemberIDOrIC(ctx, key)
	if err == nil && member == nil && utils.ValidateICNumber(key) == nil {
		member, err = s.memberRepo.GetByMemberIDOrIC(ctx, utils.NormalizeICNumber(key))
	}
	if err != nil {
		s.logger.Error("Member lookup failed", "error", err, "key", key)
		return nil, fmt.Errorf("lookup member %s: %w", key, err)
	}

	if !member.IsActive() {
		s.logger.Info("Referral is not an active member", "key", key)
		return &entity.MemberLookup{Valid: false}, nil
	}

	return &entity.MemberLookup{
		Valid:    true,
		Name:     member.FullName,
		MemberID: member.MemberID,
	}, nil
}

// Lookup searches members by name, member ID or IC number
func (s *memberServiceImpl) Lookup(ctx context.Context, query string) ([]*entity.Member, error) {
	query = utils.SanitizeString(query)
	if len(query) < 2 {
		return []*entity.Member{}, nil
	}

	members, err := s.memberRepo.Search(ctx, query, maxLookupResults)
	if err != nil {
		s.logger.Error("Member search failed", "error", err, "query", query)
		return nil, fmt.Errorf("search members: %w", err)
	}
	return members, nil
}
