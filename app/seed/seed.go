// Package seed bootstraps users and subscriptions from a YAML file on
// startup. Seeding is idempotent: existing users are reused and
// subscriptions are upserted, so the file can be applied on every boot.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"feedward/app/database"
	"feedward/app/feed"
)

type File struct {
	Users []UserSeed `yaml:"users"`
}

type UserSeed struct {
	Username      string             `yaml:"username"`
	Subscriptions []SubscriptionSeed `yaml:"subscriptions"`
}

type SubscriptionSeed struct {
	URL   string    `yaml:"url"`
	Name  string    `yaml:"name"`
	Rules RulesSeed `yaml:"rules"`
}

type RulesSeed struct {
	ExcludeTitle   []string `yaml:"exclude_title"`
	ExcludeContent []string `yaml:"exclude_content"`
	ExcludeAuthor  []string `yaml:"exclude_author"`
}

type Seeder struct {
	userRepo   database.UserRepository
	subscriber *feed.Subscriber
}

func NewSeeder(userRepo database.UserRepository, subscriber *feed.Subscriber) *Seeder {
	return &Seeder{userRepo: userRepo, subscriber: subscriber}
}

// Run loads the seed file and applies it. A single bad subscription is
// logged and skipped; a malformed file fails the whole run.
func (s *Seeder) Run(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		return err
	}

	for _, userSeed := range parsed.Users {
		user, err := s.ensureUser(userSeed.Username)
		if err != nil {
			return err
		}

		for _, subSeed := range userSeed.Subscriptions {
			rules := feed.FilterRules{
				ExcludeTitle:   subSeed.Rules.ExcludeTitle,
				ExcludeContent: subSeed.Rules.ExcludeContent,
				ExcludeAuthor:  subSeed.Rules.ExcludeAuthor,
			}

			if _, err := s.subscriber.Subscribe(ctx, user.ID, subSeed.URL, subSeed.Name, nil, rules); err != nil {
				slog.Warn("Seed subscription skipped", "user", userSeed.Username, "feed", subSeed.URL, "error", err)
			}
		}
	}

	slog.Info("Seed file applied", "path", path, "users", len(parsed.Users))

	return nil
}

func Parse(data []byte) (*File, error) {
	var parsed File
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, userSeed := range parsed.Users {
		if userSeed.Username == "" {
			return nil, fmt.Errorf("seed user %d has no username", i)
		}
		for _, subSeed := range userSeed.Subscriptions {
			if subSeed.URL == "" {
				return nil, fmt.Errorf("seed user %s has a subscription without a url", userSeed.Username)
			}
		}
	}

	return &parsed, nil
}

func (s *Seeder) ensureUser(username string) (*database.User, error) {
	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", username, err)
	}
	if user != nil {
		return user, nil
	}

	user, err = s.userRepo.CreateUser(username)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}

	slog.Info("User created", "username", username)

	return user, nil
}
