package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"adaayien/internal/apperr"
	"adaayien/internal/core/events"
	"adaayien/internal/domain"
	"adaayien/internal/feature/profile"
	"adaayien/internal/repo"
)

type AdminService struct {
	clock
	db     *gorm.DB
	posts  *PostService
	users  *repo.UserRepo
	repo   *repo.PostRepo
	events events.Publisher
	l      *zap.Logger
}

func NewAdminService(db *gorm.DB, posts *PostService, pub events.Publisher, l *zap.Logger) *AdminService {
	return &AdminService{
		db:     db,
		posts:  posts,
		users:  repo.NewUserRepo(db),
		repo:   repo.NewPostRepo(db),
		events: pub,
		l:      l.Named("admin"),
	}
}

type AdminPostsResult struct {
	Posts repo.Result[domain.Post] `json:"posts"`
	Stats repo.PostStats           `json:"stats"`
}

func (s *AdminService) ListPosts(ctx context.Context, f repo.PostFilter, p repo.Page) (AdminPostsResult, error) {
	posts, err := s.posts.List(ctx, f, p)
	if err != nil {
		return AdminPostsResult{}, err
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return AdminPostsResult{}, dbErr("post stats failed", err)
	}
	return AdminPostsResult{Posts: posts, Stats: stats}, nil
}

func (s *AdminService) SetFeatured(ctx context.Context, admin *domain.User, postID string, featured bool) (*domain.Post, error) {
	action := "post.unfeature"
	if featured {
		action = "post.feature"
	}
	p, err := s.posts.setFeatured(ctx, postID, featured, func(tx *gorm.DB) error {
		return profile.RecordAdminAction(tx, admin.ID, action, postID, s.Now())
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.Event{
		Type: events.AdminPostFeatured, Key: postID, At: s.Now(),
		Payload: map[string]any{"admin": admin.ID, "isFeatured": featured},
	})
	return p, nil
}

// DeletePost 跳过作者校验
func (s *AdminService) DeletePost(ctx context.Context, admin *domain.User, postID string) error {
	if admin.Role != domain.RoleAdmin {
		return apperr.Forbidden("admin role required").WithData("role", admin.Role)
	}
	p, err := s.posts.delete(ctx, admin, postID, func(tx *gorm.DB, _ *domain.Post) error {
		return profile.RecordAdminAction(tx, admin.ID, "post.delete", postID, s.Now())
	})
	if err != nil {
		return err
	}
	s.l.Info("post removed by admin", zap.String("post", postID), zap.String("admin", admin.ID))
	s.events.Publish(ctx, events.Event{
		Type: events.AdminPostDeleted, Key: postID, At: s.Now(),
		Payload: map[string]any{"admin": admin.ID, "creator": p.CreatorID},
	})
	return nil
}

type CreatorSummary struct {
	User      domain.PublicUser      `json:"user"`
	Profile   *domain.CreatorProfile `json:"profile"`
	PostCount int64                  `json:"postCount"`
}

func (s *AdminService) ListCreators(ctx context.Context, p repo.Page) (repo.Result[CreatorSummary], error) {
	p = p.Normalize()
	users, total, err := s.users.ListByRole(ctx, domain.RoleCreator, p.Offset(), p.Limit)
	if err != nil {
		return repo.Result[CreatorSummary]{}, dbErr("list creators failed", err)
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	var profiles []domain.CreatorProfile
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
			return repo.Result[CreatorSummary]{}, dbErr("load creator profiles failed", err)
		}
	}
	byUser := make(map[string]*domain.CreatorProfile, len(profiles))
	for i := range profiles {
		byUser[profiles[i].UserID] = &profiles[i]
	}
	counts, err := s.repo.CountByCreators(ctx, ids)
	if err != nil {
		return repo.Result[CreatorSummary]{}, dbErr("count posts failed", err)
	}

	out := make([]CreatorSummary, 0, len(users))
	for i := range users {
		u := &users[i]
		out = append(out, CreatorSummary{User: u.Public(), Profile: byUser[u.ID], PostCount: counts[u.ID]})
	}
	return repo.NewResult(out, total, p), nil
}
