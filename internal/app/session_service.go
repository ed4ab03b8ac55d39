package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"gopherai-chat/internal/ai"
	"gopherai-chat/internal/model"
	"gopherai-chat/internal/repository"
)

const (
	// DocumentTextPrefix heads every turn that carries extracted document text.
	DocumentTextPrefix = "Extracted document text:\n"

	emptyReplyNotice = "The model returned an empty response."
)

type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	ListByOwner(ctx context.Context, ownerID string) ([]model.Session, error)
	GetByIDAndOwner(ctx context.Context, sessionID, ownerID string) (*model.Session, error)
	DeleteByIDAndOwner(ctx context.Context, sessionID, ownerID string) (bool, error)
	AppendTurns(ctx context.Context, session *model.Session, turns []model.Turn) error
}

type TurnStore interface {
	ListBySessionID(ctx context.Context, sessionID string) ([]model.Turn, error)
}

type TurnCache interface {
	GetTurns(ctx context.Context, sessionID string, version int64) ([]model.Turn, bool, error)
	SetTurns(ctx context.Context, sessionID string, version int64, turns []model.Turn) error
	DeleteTurns(ctx context.Context, sessionID string) error
}

type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event model.SessionEvent) error
}

type EventStore interface {
	ListBySessionAndOwner(ctx context.Context, sessionID, ownerID string) ([]model.SessionEvent, error)
}

type DocumentArchive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type SessionOptions struct {
	DefaultTitle      string
	TitleLength       int
	MaxDocumentChars  int
	GenerationTimeout time.Duration
}

// SessionDeps lists the collaborators of SessionService. Cache, Publisher,
// Events and Archive are optional.
type SessionDeps struct {
	Sessions  SessionStore
	Turns     TurnStore
	Generator ai.Generator
	Extractor Extractor
	Cache     TurnCache
	Publisher EventPublisher
	Events    EventStore
	Archive   DocumentArchive
}

type SessionService struct {
	sessions  SessionStore
	turns     TurnStore
	generator ai.Generator
	extractor Extractor
	cache     TurnCache
	publisher EventPublisher
	events    EventStore
	archive   DocumentArchive
	opts      SessionOptions
}

type UploadResult struct {
	Chars      int
	ArchiveKey string
}

func NewSessionService(deps SessionDeps, opts SessionOptions) *SessionService {
	if opts.DefaultTitle == "" {
		opts.DefaultTitle = model.DefaultSessionTitle
	}
	if opts.TitleLength <= 0 {
		opts.TitleLength = 30
	}
	if opts.MaxDocumentChars <= 0 {
		opts.MaxDocumentChars = 40000
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 60 * time.Second
	}
	return &SessionService{
		sessions:  deps.Sessions,
		turns:     deps.Turns,
		generator: deps.Generator,
		extractor: deps.Extractor,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		events:    deps.Events,
		archive:   deps.Archive,
		opts:      opts,
	}
}

func (s *SessionService) CreateSession(ctx context.Context, uid string) (*model.Session, error) {
	if uid == "" {
		return nil, ErrInvalidInput
	}

	session := &model.Session{
		ID:      uuid.NewString(),
		OwnerID: uid,
		Title:   s.opts.DefaultTitle,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, storageFailed(err)
	}
	s.publish(ctx, session, model.EventSessionCreated, "")
	return session, nil
}

func (s *SessionService) ListSessions(ctx context.Context, uid string) ([]model.Session, error) {
	if uid == "" {
		return nil, ErrInvalidInput
	}
	sessions, err := s.sessions.ListByOwner(ctx, uid)
	if err != nil {
		return nil, storageFailed(err)
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return sessions, nil
}

// GetSession returns the turns of a session owned by uid. Sessions that do
// not exist and sessions owned by someone else both read as empty.
func (s *SessionService) GetSession(ctx context.Context, uid, sessionID string) ([]model.Turn, error) {
	if uid == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.sessions.GetByIDAndOwner(ctx, sessionID, uid)
	if err != nil {
		return nil, storageFailed(err)
	}
	if session == nil {
		return []model.Turn{}, nil
	}
	return s.loadTurns(ctx, session)
}

// ListEvents returns the recorded audit events of a session owned by uid.
// Like GetSession it reads foreign sessions as empty.
func (s *SessionService) ListEvents(ctx context.Context, uid, sessionID string) ([]model.SessionEvent, error) {
	if uid == "" {
		return nil, ErrInvalidInput
	}
	if s.events == nil {
		return []model.SessionEvent{}, nil
	}
	events, err := s.events.ListBySessionAndOwner(ctx, sessionID, uid)
	if err != nil {
		return nil, storageFailed(err)
	}
	if events == nil {
		events = []model.SessionEvent{}
	}
	return events, nil
}

// DeleteSession is idempotent: deleting a missing or foreign session succeeds.
func (s *SessionService) DeleteSession(ctx context.Context, uid, sessionID string) error {
	if uid == "" {
		return ErrInvalidInput
	}
	deleted, err := s.sessions.DeleteByIDAndOwner(ctx, sessionID, uid)
	if err != nil {
		return storageFailed(err)
	}
	if !deleted {
		return nil
	}
	s.evict(ctx, sessionID)
	s.publish(ctx, &model.Session{ID: sessionID, OwnerID: uid}, model.EventSessionDeleted, "")
	return nil
}

// SendMessage asks the model to answer the session history plus text and
// stores the user turn and the reply together. Nothing is stored when
// generation fails.
func (s *SessionService) SendMessage(ctx context.Context, uid, sessionID, text string) (string, error) {
	if uid == "" {
		return "", ErrInvalidInput
	}
	content := strings.TrimSpace(text)
	if content == "" {
		return "", ErrMessageEmpty
	}

	session, err := s.sessions.GetByIDAndOwner(ctx, sessionID, uid)
	if err != nil {
		return "", storageFailed(err)
	}
	if session == nil {
		return "", ErrSessionNotFound
	}

	existing, err := s.loadTurns(ctx, session)
	if err != nil {
		return "", err
	}
	history := make([]ai.ChatTurn, 0, len(existing)+1)
	for _, turn := range existing {
		history = append(history, ai.ChatTurn{Role: turn.Role, Text: turn.Text})
	}
	history = append(history, ai.ChatTurn{Role: model.RoleUser, Text: content})

	reply, err := s.generate(ctx, history)
	if err != nil {
		slog.ErrorContext(ctx, "generation failed",
			"session_id", sessionID, "turns", len(history), "error", err)
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = emptyReplyNotice
	}

	if !session.Titled {
		session.Title = s.titleFrom(content)
		session.Titled = true
	}
	now := time.Now()
	newTurns := []model.Turn{
		{Role: model.RoleUser, Text: content, CreatedAt: now},
		{Role: model.RoleModel, Text: reply, CreatedAt: now},
	}
	if err := s.append(ctx, session, newTurns); err != nil {
		return "", err
	}

	s.publish(ctx, session, model.EventTurnsAppended, fmt.Sprintf("seq=%d..%d", newTurns[0].Seq, newTurns[1].Seq))
	return reply, nil
}

// UploadDocument extracts the text of a PDF and appends it to the session as
// a system turn bounded to MaxDocumentChars characters.
func (s *SessionService) UploadDocument(ctx context.Context, uid, sessionID, filename string, data []byte) (*UploadResult, error) {
	if uid == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.sessions.GetByIDAndOwner(ctx, sessionID, uid)
	if err != nil {
		return nil, storageFailed(err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	text, err := s.extractor.Extract(ctx, data)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("no text found")
	}
	if err != nil {
		slog.WarnContext(ctx, "document extraction failed",
			"session_id", sessionID, "filename", filename, "bytes", len(data), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	stored := truncateRunes(DocumentTextPrefix+text, s.opts.MaxDocumentChars)
	turns := []model.Turn{{Role: model.RoleSystem, Text: stored, CreatedAt: time.Now()}}
	if err := s.append(ctx, session, turns); err != nil {
		return nil, err
	}

	result := &UploadResult{Chars: utf8.RuneCountInString(stored)}
	if s.archive != nil {
		key := path.Join(uid, sessionID, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
		archived, err := s.archive.Put(ctx, key, data, "application/pdf")
		if err != nil {
			slog.WarnContext(ctx, "archive upload failed", "session_id", sessionID, "error", err)
		} else {
			result.ArchiveKey = archived
		}
	}

	s.publish(ctx, session, model.EventDocumentAttached, truncateRunes(filename, 200))
	return result, nil
}

func (s *SessionService) generate(ctx context.Context, history []ai.ChatTurn) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()
	return s.generator.Generate(genCtx, history)
}

func (s *SessionService) append(ctx context.Context, session *model.Session, turns []model.Turn) error {
	err := s.sessions.AppendTurns(ctx, session, turns)
	if errors.Is(err, repository.ErrVersionConflict) {
		return ErrConcurrentUpdate
	}
	if err != nil {
		return storageFailed(err)
	}
	s.evict(ctx, session.ID)
	return nil
}

func (s *SessionService) loadTurns(ctx context.Context, session *model.Session) ([]model.Turn, error) {
	if s.cache != nil {
		cached, hit, err := s.cache.GetTurns(ctx, session.ID, session.Version)
		if err != nil {
			slog.WarnContext(ctx, "turn cache read failed", "session_id", session.ID, "error", err)
		} else if hit {
			return cached, nil
		}
	}

	turns, err := s.turns.ListBySessionID(ctx, session.ID)
	if err != nil {
		return nil, storageFailed(err)
	}
	if s.cache != nil {
		if err := s.cache.SetTurns(ctx, session.ID, session.Version, turns); err != nil {
			slog.WarnContext(ctx, "turn cache write failed", "session_id", session.ID, "error", err)
		}
	}
	return turns, nil
}

func (s *SessionService) evict(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteTurns(ctx, sessionID); err != nil {
		slog.WarnContext(ctx, "turn cache evict failed", "session_id", sessionID, "error", err)
	}
}

func (s *SessionService) publish(ctx context.Context, session *model.Session, eventType, detail string) {
	if s.publisher == nil {
		return
	}
	event := model.SessionEvent{
		SessionID: session.ID,
		OwnerID:   session.OwnerID,
		Type:      eventType,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish session event failed",
			"session_id", session.ID, "type", eventType, "error", err)
	}
}

func (s *SessionService) titleFrom(content string) string {
	title := strings.TrimSpace(truncateRunes(content, s.opts.TitleLength))
	if title == "" {
		return s.opts.DefaultTitle
	}
	return title
}

func storageFailed(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageFailed, err)
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
