package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

const chatbotColumns = `id, name, slug, system_prompt, greeting, model, provider, temperature, max_tokens, max_memory, status, created_at, updated_at`

// UpsertChatbot inserts or updates a chatbot. Without an ID the slug is the key,
// and the assigned ID is written back to bot.
func (s *SQLiteStore) UpsertChatbot(ctx context.Context, bot *domain.Chatbot) error {
	now := time.Now().UTC()
	if bot.Status == "" {
		bot.Status = domain.ChatbotStatusActive
	}
	if bot.CreatedAt.IsZero() {
		bot.CreatedAt = now
	}
	bot.UpdatedAt = now

	const set = `name = excluded.name, system_prompt = excluded.system_prompt, greeting = excluded.greeting,
		model = excluded.model, provider = excluded.provider, temperature = excluded.temperature,
		max_tokens = excluded.max_tokens, max_memory = excluded.max_memory, status = excluded.status,
		updated_at = excluded.updated_at`

	if bot.ID > 0 {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO chatbots (`+chatbotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET slug = excluded.slug, `+set,
			bot.ID, bot.Name, bot.Slug, bot.SystemPrompt, bot.Greeting, bot.Model, bot.Provider,
			bot.Temperature, bot.MaxTokens, bot.MaxMemory, bot.Status, bot.CreatedAt, bot.UpdatedAt)
		return err
	}

	return s.db.QueryRowContext(ctx,
		`INSERT INTO chatbots (name, slug, system_prompt, greeting, model, provider, temperature, max_tokens, max_memory, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET `+set+` RETURNING id`,
		bot.Name, bot.Slug, bot.SystemPrompt, bot.Greeting, bot.Model, bot.Provider,
		bot.Temperature, bot.MaxTokens, bot.MaxMemory, bot.Status, bot.CreatedAt, bot.UpdatedAt,
	).Scan(&bot.ID)
}

// GetChatbot retrieves a chatbot by ID. It returns (nil, nil) when absent.
func (s *SQLiteStore) GetChatbot(ctx context.Context, id int64) (*domain.Chatbot, error) {
	return s.getChatbot(ctx, `SELECT `+chatbotColumns+` FROM chatbots WHERE id = ?`, id)
}

// GetChatbotBySlug retrieves a chatbot by slug. It returns (nil, nil) when absent.
func (s *SQLiteStore) GetChatbotBySlug(ctx context.Context, slug string) (*domain.Chatbot, error) {
	return s.getChatbot(ctx, `SELECT `+chatbotColumns+` FROM chatbots WHERE slug = ?`, slug)
}

func (s *SQLiteStore) getChatbot(ctx context.Context, query string, arg interface{}) (*domain.Chatbot, error) {
	bot, err := scanChatbot(s.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bot, nil
}

// ListChatbots lists all chatbots ordered by ID.
func (s *SQLiteStore) ListChatbots(ctx context.Context) ([]domain.Chatbot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chatbotColumns+` FROM chatbots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []domain.Chatbot
	for rows.Next() {
		bot, err := scanChatbot(rows)
		if err != nil {
			return nil, err
		}
		bots = append(bots, *bot)
	}
	return bots, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChatbot(row rowScanner) (*domain.Chatbot, error) {
	var bot domain.Chatbot
	err := row.Scan(&bot.ID, &bot.Name, &bot.Slug, &bot.SystemPrompt, &bot.Greeting, &bot.Model, &bot.Provider,
		&bot.Temperature, &bot.MaxTokens, &bot.MaxMemory, &bot.Status, &bot.CreatedAt, &bot.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &bot, nil
}
