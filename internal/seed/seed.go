// Package seed populates a development database with fake users, follows and
// posts. It is intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/aquawaran/Clon-Official/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/bwmarrin/snowflake"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Result summarizes what a run created.
type Result struct {
	Users    []models.User
	Posts    []models.Post
	Follows  int
	Comments int
}

// Seeder writes fake data straight through gorm, bypassing the services.
type Seeder struct {
	db    *gorm.DB
	ids   *snowflake.Node
	faker *gofakeit.Faker
	rng   *rand.Rand
	// bcrypt cost; lowered in tests
	cost int
}

// NewSeeder returns a Seeder using ids for public ids. A non-zero seed makes
// runs reproducible.
func NewSeeder(db *gorm.DB, ids *snowflake.Node, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{
		db:    db,
		ids:   ids,
		faker: gofakeit.New(seed),
		rng:   rand.New(rand.NewSource(seed)),
		cost:  bcrypt.DefaultCost,
	}
}

// Run executes a full seeding pass.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	log.Printf("🌱 Seeding %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	res := &Result{}
	users, err := s.createUsers(ctx, opts.NumUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	res.Users = users
	log.Printf("✓ %d users created", len(users))

	if res.Follows, err = s.createFollows(ctx, users); err != nil {
		return nil, fmt.Errorf("failed to create follows: %w", err)
	}
	log.Printf("✓ %d follows created", res.Follows)

	posts, comments, err := s.createPosts(ctx, users, opts.NumPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	res.Posts = posts
	res.Comments = comments
	log.Printf("✓ %d posts with %d comments created", len(posts), comments)

	return res, nil
}

// ClearAll removes every row the seeder can create.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Notification{}, &models.Follow{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Seeder) createUsers(ctx context.Context, count int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), s.cost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, count)
	seen := make(map[string]bool, count)
	for len(users) < count {
		first, last := s.faker.FirstName(), s.faker.LastName()
		username := strings.ToLower(fmt.Sprintf("%s_%s%d", first, last, s.rng.Intn(1000)))
		if len(username) > 30 {
			username = username[:30]
		}
		username = strings.TrimRight(username, "_-")
		if seen[username] {
			continue
		}
		seen[username] = true

		users = append(users, models.User{
			Name:     first + " " + last,
			Username: username,
			Email:    username + "@example.com",
			Password: string(hash),
			PublicID: s.ids.Generate().Int64(),
			Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
			Bio:      s.faker.Sentence(8),
		})
	}
	if len(users) == 0 {
		return users, nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Seeder) createFollows(ctx context.Context, users []models.User) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	var follows []models.Follow
	for i := range users {
		n := s.rng.Intn(min(len(users)-1, 10) + 1)
		for _, j := range s.rng.Perm(len(users))[:n+1] {
			if j == i {
				continue
			}
			follows = append(follows, models.Follow{FollowerID: users[i].ID, FollowingID: users[j].ID})
		}
	}
	if len(follows) == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&follows, 200).Error; err != nil {
		return 0, err
	}
	return len(follows), nil
}

func (s *Seeder) createPosts(ctx context.Context, users []models.User, count int) ([]models.Post, int, error) {
	if len(users) == 0 || count <= 0 {
		return nil, 0, nil
	}

	posts := make([]models.Post, 0, count)
	comments := 0
	for i := 0; i < count; i++ {
		author := users[s.rng.Intn(len(users))]
		post := s.buildPost(author)

		reactions := models.ReactionMap{}
		for _, idx := range s.rng.Perm(len(users))[:s.rng.Intn(len(users)+1)] {
			kind := models.ReactionKinds[s.rng.Intn(len(models.ReactionKinds))]
			next, err := models.ApplyReaction(reactions, users[idx].ID, kind)
			if err != nil {
				return nil, 0, err
			}
			reactions = next
		}
		post.SetReactions(reactions)

		var ledger []models.Comment
		at := post.CreatedAt
		for n := s.rng.Intn(4); n > 0; n-- {
			commenter := users[s.rng.Intn(len(users))]
			at = at.Add(time.Duration(s.rng.Intn(120)+1) * time.Minute)
			next, _, err := models.AppendComment(ledger, commenter.Snapshot(), s.faker.Sentence(s.rng.Intn(10)+3), at)
			if err != nil {
				return nil, 0, err
			}
			ledger = next
		}
		if ledger != nil {
			post.SetComments(ledger)
			comments += len(ledger)
		}
		posts = append(posts, *post)
	}

	if err := s.db.WithContext(ctx).Omit("Author").CreateInBatches(&posts, 100).Error; err != nil {
		return nil, 0, err
	}
	return posts, comments, nil
}

// buildPost makes an unsaved post with a creation time within the last 30 days.
func (s *Seeder) buildPost(author models.User) *models.Post {
	var media []models.MediaItem
	if s.rng.Intn(4) == 0 {
		media = append(media, models.MediaItem{
			URL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.faker.UUID()),
			Type: models.MediaImage,
		})
	}
	post := models.NewPost(author.ID, s.faker.Paragraph(1, s.rng.Intn(3)+1, 12, " "), media)
	post.CreatedAt = time.Now().Add(-time.Duration(s.rng.Intn(30*24*60)) * time.Minute)
	post.UpdatedAt = post.CreatedAt
	return post
}
