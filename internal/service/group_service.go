package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meetvault/internal/domain"
)

type groupFullStore interface {
	groupStore
	Create(ctx context.Context, g *domain.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	List(ctx context.Context) ([]domain.Group, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Group, error)
	Update(ctx context.Context, id uuid.UUID, upd domain.GroupUpdate) (*domain.Group, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, groupID, userID uuid.UUID, role string) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMember, error)
}

// GroupService управляет группами и членством в них
type GroupService struct {
	groupRepo groupFullStore
	log       zerolog.Logger
}

func NewGroupService(groupRepo groupFullStore, log zerolog.Logger) *GroupService {
	return &GroupService{groupRepo: groupRepo, log: log}
}

func (s *GroupService) Create(ctx context.Context, userID uuid.UUID, in domain.GroupCreate) (*domain.Group, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("group name is required: %w", domain.ErrValidation)
	}

	group := &domain.Group{
		Name:        in.Name,
		Description: in.Description,
		CreatedBy:   userID,
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	return group, nil
}

// ListMine возвращает группы, в которых состоит пользователь
func (s *GroupService) ListMine(ctx context.Context, userID uuid.UUID) ([]domain.Group, error) {
	return s.groupRepo.ListByUser(ctx, userID)
}

func (s *GroupService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Group, error) {
	if _, err := s.groupRepo.GetMemberRole(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.groupRepo.GetByID(ctx, id)
}

func (s *GroupService) Update(ctx context.Context, userID, id uuid.UUID, upd domain.GroupUpdate) (*domain.Group, error) {
	if err := s.requireAdmin(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.groupRepo.Update(ctx, id, upd)
}

func (s *GroupService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.requireAdmin(ctx, id, userID); err != nil {
		return err
	}
	return s.groupRepo.Delete(ctx, id)
}

func (s *GroupService) AddMember(ctx context.Context, userID, groupID, memberID uuid.UUID, role string) error {
	if err := s.requireAdmin(ctx, groupID, userID); err != nil {
		return err
	}
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return fmt.Errorf("unknown role %q: %w", role, domain.ErrValidation)
	}

	return s.groupRepo.AddMember(ctx, groupID, memberID, role)
}

func (s *GroupService) RemoveMember(ctx context.Context, userID, groupID, memberID uuid.UUID) error {
	if err := s.requireAdmin(ctx, groupID, userID); err != nil {
		return err
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	// Создателя группы исключить нельзя
	if group.CreatedBy == memberID {
		return fmt.Errorf("group creator cannot be removed: %w", domain.ErrValidation)
	}

	return s.groupRepo.RemoveMember(ctx, groupID, memberID)
}

func (s *GroupService) ListMembers(ctx context.Context, userID, groupID uuid.UUID) ([]domain.GroupMember, error) {
	if _, err := s.groupRepo.GetMemberRole(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.groupRepo.ListMembers(ctx, groupID)
}

func (s *GroupService) requireAdmin(ctx context.Context, groupID, userID uuid.UUID) error {
	role, err := s.groupRepo.GetMemberRole(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if role != domain.RoleAdmin {
		return fmt.Errorf("only group admins can manage the group: %w", domain.ErrForbidden)
	}

	return nil
}
