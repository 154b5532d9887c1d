package chatstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"tutortron-rag/internal/config"
	"tutortron-rag/internal/helper"
)

var ErrChatNotFound = errors.New("chat not found")

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	ID            string    `bun:"id,pk" json:"id"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	LastSeenAt    time.Time `bun:"last_seen_at,notnull,default:current_timestamp" json:"lastSeenAt"`
}

type Chat struct {
	bun.BaseModel `bun:"table:chats,alias:c"`
	ID            string    `bun:"id,pk" json:"id"`
	UserID        string    `bun:"user_id,notnull" json:"userId"`
	Title         string    `bun:"title" json:"title"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
	IsFlagged     bool      `bun:"is_flagged,notnull,default:false" json:"isFlagged"`
	FlagReason    string    `bun:"flag_reason" json:"flagReason,omitempty"`
	Messages      []Message `bun:"rel:has-many,join:id=chat_id" json:"messages,omitempty"`
}

type Message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	ChatID        string    `bun:"chat_id,notnull" json:"chatId"`
	Role          string    `bun:"role,notnull" json:"role"`
	Content       string    `bun:"content,notnull" json:"content"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	IsFlagged     bool      `bun:"is_flagged,notnull,default:false" json:"isFlagged"`
	FlagReason    string    `bun:"flag_reason" json:"flagReason,omitempty"`
}

// Statistics summarizes stored conversation activity for review.
type Statistics struct {
	TotalChats      int `json:"totalChats"`
	TotalMessages   int `json:"totalMessages"`
	FlaggedChats    int `json:"flaggedChats"`
	FlaggedMessages int `json:"flaggedMessages"`
}

// Store persists chat history and moderation flags in Postgres.
type Store struct {
	db *bun.DB
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN not configured")
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

func NewStore(sqldb *sql.DB, debug bool) *Store {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db}
}

func (s *Store) Init(ctx context.Context) error {
	models := []interface{}{(*User)(nil), (*Chat)(nil), (*Message)(nil)}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	if _, err := s.db.NewCreateIndex().
		Model((*Message)(nil)).
		Index("idx_messages_chat_id").
		Column("chat_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*Chat)(nil)).
		Index("idx_chats_user_id").
		Column("user_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureUser records the user on first contact and bumps last_seen_at
// on every later one.
func (s *Store) EnsureUser(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	user := &User{ID: userID, CreatedAt: now, LastSeenAt: now}
	_, err := s.db.NewInsert().
		Model(user).
		On("CONFLICT (id) DO UPDATE").
		Set("last_seen_at = ?", now).
		Exec(ctx)
	return err
}

// CreateChat registers a chat if it does not exist yet and returns its
// id. Client-side placeholder ids are replaced with server-generated
// UUIDs so the client cannot choose its own primary key.
func (s *Store) CreateChat(ctx context.Context, chatID, userID, title string) (string, error) {
	if err := s.EnsureUser(ctx, userID); err != nil {
		return "", err
	}
	if chatID == "" || helper.IsTempID(chatID) {
		id, err := helper.GenerateUUID()
		if err != nil {
			return "", err
		}
		chatID = id
	}

	exists, err := s.db.NewSelect().Model((*Chat)(nil)).Where("id = ?", chatID).Exists(ctx)
	if err != nil {
		return "", err
	}
	if exists {
		return chatID, nil
	}

	now := time.Now().UTC()
	chat := &Chat{
		ID:        chatID,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(chat).Exec(ctx); err != nil {
		return "", err
	}
	return chatID, nil
}

// AddMessage appends one message and bumps the chat's updated_at.
func (s *Store) AddMessage(ctx context.Context, chatID, role, content string, flagged bool, flagReason string) error {
	msg := &Message{
		ChatID:     chatID,
		Role:       role,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
		IsFlagged:  flagged,
		FlagReason: flagReason,
	}
	if _, err := s.db.NewInsert().Model(msg).Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewUpdate().
		Model((*Chat)(nil)).
		Set("updated_at = ?", msg.CreatedAt).
		Where("id = ?", chatID).
		Exec(ctx)
	return err
}

func (s *Store) GetUserChats(ctx context.Context, userID string) ([]Chat, error) {
	var chats []Chat
	err := s.db.NewSelect().
		Model(&chats).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Scan(ctx)
	return chats, err
}

func (s *Store) GetChatWithMessages(ctx context.Context, chatID string) (*Chat, error) {
	chat := new(Chat)
	err := s.db.NewSelect().
		Model(chat).
		Relation("Messages", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("created_at ASC")
		}).
		Where("c.id = ?", chatID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *Store) UpdateChatTitle(ctx context.Context, chatID, title string) error {
	res, err := s.db.NewUpdate().
		Model((*Chat)(nil)).
		Set("title = ?", title).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", chatID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChatNotFound
	}
	return nil
}

// DeleteChat removes a chat and all of its messages.
func (s *Store) DeleteChat(ctx context.Context, chatID string) error {
	if _, err := s.db.NewDelete().
		Model((*Message)(nil)).
		Where("chat_id = ?", chatID).
		Exec(ctx); err != nil {
		return err
	}
	res, err := s.db.NewDelete().
		Model((*Chat)(nil)).
		Where("id = ?", chatID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChatNotFound
	}
	return nil
}

func (s *Store) FlagChat(ctx context.Context, chatID, reason string) error {
	res, err := s.db.NewUpdate().
		Model((*Chat)(nil)).
		Set("is_flagged = ?", true).
		Set("flag_reason = ?", reason).
		Where("id = ?", chatID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChatNotFound
	}
	log.Info().Str("chatId", chatID).Str("reason", reason).Msg("Flagged chat")
	return nil
}

func (s *Store) FlagMessage(ctx context.Context, messageID int64, reason string) error {
	_, err := s.db.NewUpdate().
		Model((*Message)(nil)).
		Set("is_flagged = ?", true).
		Set("flag_reason = ?", reason).
		Where("id = ?", messageID).
		Exec(ctx)
	return err
}

// GetFlaggedContent lists flagged chats plus chats containing flagged
// messages, for moderator review.
func (s *Store) GetFlaggedContent(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	err := s.db.NewSelect().
		Model(&chats).
		Relation("Messages", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("is_flagged = ?", true)
		}).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("c.is_flagged = ?", true).
				WhereOr("EXISTS (SELECT 1 FROM messages m WHERE m.chat_id = c.id AND m.is_flagged = TRUE)")
		}).
		Order("updated_at DESC").
		Scan(ctx)
	return chats, err
}

func (s *Store) GetStatistics(ctx context.Context) (*Statistics, error) {
	stats := new(Statistics)
	var err error
	if stats.TotalChats, err = s.db.NewSelect().Model((*Chat)(nil)).Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalMessages, err = s.db.NewSelect().Model((*Message)(nil)).Count(ctx); err != nil {
		return nil, err
	}
	if stats.FlaggedChats, err = s.db.NewSelect().Model((*Chat)(nil)).Where("is_flagged = ?", true).Count(ctx); err != nil {
		return nil, err
	}
	if stats.FlaggedMessages, err = s.db.NewSelect().Model((*Message)(nil)).Where("is_flagged = ?", true).Count(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}
