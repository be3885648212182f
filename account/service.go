// Package account signs users up and in, and keeps their denormalized
// profile copies in step.
package account

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/meinhoongagan/homeservice-app/models"
	"github.com/meinhoongagan/homeservice-app/session"
	"github.com/meinhoongagan/homeservice-app/store"
	"github.com/meinhoongagan/homeservice-app/utils"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLen = 6

// credential lives apart from the user document so that user documents can be
// read by other users without exposing the hash.
type credential struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

type RegisterInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type LoginResult struct {
	Token      string       `json:"token"`
	ExpiresAt  time.Time    `json:"expiresAt"`
	User       *models.User `json:"user"`
	NeedsTerms bool         `json:"needsTerms"`
}

type Service struct {
	store    store.Store
	sessions session.Store
	tokens   *TokenIssuer
	uploader utils.Uploader
	now      func() time.Time
}

func NewService(s store.Store, sessions session.Store, tokens *TokenIssuer, uploader utils.Uploader) *Service {
	return &Service{store: s, sessions: sessions, tokens: tokens, uploader: uploader, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" || email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	if !in.Role.CanSignUp() {
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:      name,
		Email:     email,
		Role:      in.Role,
		Active:    true,
		CreatedAt: models.Stamp(s.now()),
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		existing, err := tx.Get(ctx, store.Q(models.CollectionCredentials, store.Where("email", store.OpEq, email)).Take(1))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrEmailInUse
		}
		data, err := store.Encode(user)
		if err != nil {
			return err
		}
		id, err := tx.Add(ctx, models.CollectionUsers, data)
		if err != nil {
			return err
		}
		user.ID = id
		cred, err := store.Encode(credential{Email: email, PasswordHash: string(hash)})
		if err != nil {
			return err
		}
		return tx.Set(ctx, models.CollectionCredentials, id, cred)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("registered %s account %s", user.Role, user.ID)
	return user, nil
}

// Login signs sess in. Any rejection once the store is consulted leaves sess
// cleared, with no identity.
func (s *Service) Login(ctx context.Context, sess *session.Session, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	creds, err := s.store.Get(ctx, store.Q(models.CollectionCredentials, store.Where("email", store.OpEq, email)).Take(1))
	if err != nil {
		sess.Clear()
		return nil, err
	}
	if len(creds) == 0 {
		sess.Clear()
		return nil, ErrUserNotFound
	}
	var cred credential
	if err := store.Decode(creds[0], &cred); err != nil {
		sess.Clear()
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		sess.Clear()
		return nil, ErrWrongPassword
	}

	user, err := s.findUser(ctx, cred.ID)
	if errors.Is(err, store.ErrNotFound) {
		sess.Clear()
		return nil, ErrAccountNotFound
	}
	if err != nil {
		sess.Clear()
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		sess.Clear()
		return nil, ErrInvalidAccountType
	}
	if !user.Active {
		sess.Clear()
		return nil, ErrAccountInactive
	}

	now := s.now()
	if err := s.store.Update(ctx, models.CollectionUsers, user.ID, map[string]interface{}{
		"isOnline": true,
		"lastSeen": models.NewTimestamp(now).String(),
	}); err != nil {
		sess.Clear()
		return nil, err
	}
	user.IsOnline = true
	user.LastSeen = models.Stamp(now)

	token, tokenID, expires, err := s.tokens.Issue(user.ID, user.Role, now)
	if err != nil {
		sess.Clear()
		return nil, fmt.Errorf("issue token: %w", err)
	}
	identity := session.Identity{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Image:  user.Image,
	}
	if err := s.sessions.Save(ctx, tokenID, identity, s.tokens.TTL()); err != nil {
		sess.Clear()
		return nil, fmt.Errorf("save session: %w", err)
	}
	sess.Populate(identity, tokenID)

	return &LoginResult{Token: token, ExpiresAt: expires, User: user, NeedsTerms: !user.HasAcceptedTerms}, nil
}

// Logout marks the user offline and ends the session. The session is cleared
// even when the presence update fails.
func (s *Service) Logout(ctx context.Context, sess *session.Session) error {
	id, err := sess.Require()
	if err != nil {
		return err
	}
	tokenID := sess.TokenID()
	defer sess.Clear()

	presenceErr := s.store.Update(ctx, models.CollectionUsers, id.UserID, map[string]interface{}{
		"isOnline": false,
		"lastSeen": models.NewTimestamp(s.now()).String(),
	})
	if err := s.sessions.Delete(ctx, tokenID); err != nil {
		return errors.Join(presenceErr, fmt.Errorf("delete session: %w", err))
	}
	return presenceErr
}

func (s *Service) AcceptTerms(ctx context.Context, sess *session.Session) error {
	id, err := sess.Require()
	if err != nil {
		return err
	}
	return s.store.Update(ctx, models.CollectionUsers, id.UserID, map[string]interface{}{"hasAcceptedTerms": true})
}

func (s *Service) Profile(ctx context.Context, sess *session.Session) (*models.User, error) {
	id, err := sess.Require()
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, id.UserID)
}

// Rename changes the user's name everywhere a copy of it is kept, atomically.
func (s *Service) Rename(ctx context.Context, sess *session.Session, name string) error {
	id, err := sess.Require()
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.Update(ctx, models.CollectionUsers, id.UserID, map[string]interface{}{"name": name}); err != nil {
			return err
		}
		if err := fanOut(ctx, tx, models.CollectionBookings, "customerId", id.UserID, map[string]interface{}{"customerName": name}); err != nil {
			return err
		}
		if err := fanOut(ctx, tx, models.CollectionBookings, "providerId", id.UserID, map[string]interface{}{"providerName": name}); err != nil {
			return err
		}
		return fanOut(ctx, tx, models.CollectionProviderServices, "providerId", id.UserID, map[string]interface{}{"providerName": name})
	})
	if err != nil {
		return fmt.Errorf("rename user %s: %w", id.UserID, err)
	}
	s.refreshSession(ctx, sess, func(i *session.Identity) { i.Name = name })
	return nil
}

// UpdateImage uploads a new profile image and points every copy at it, atomically.
func (s *Service) UpdateImage(ctx context.Context, sess *session.Session, file interface{}) (string, error) {
	id, err := sess.Require()
	if err != nil {
		return "", err
	}
	url, err := s.uploader.Upload(ctx, file, "profile_"+id.UserID, "profiles")
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.Update(ctx, models.CollectionUsers, id.UserID, map[string]interface{}{"image": url}); err != nil {
			return err
		}
		if err := fanOut(ctx, tx, models.CollectionProviderServices, "providerId", id.UserID, map[string]interface{}{"providerImage": url}); err != nil {
			return err
		}
		return fanOut(ctx, tx, models.CollectionBookings, "providerId", id.UserID, map[string]interface{}{"providerImage": url})
	})
	if err != nil {
		return "", fmt.Errorf("update image for %s: %w", id.UserID, err)
	}
	s.refreshSession(ctx, sess, func(i *session.Identity) { i.Image = url })
	return url, nil
}

// refreshSession applies fn to sess and to its stored copy. A failure to
// rewrite the stored copy is logged: the profile itself is already updated.
func (s *Service) refreshSession(ctx context.Context, sess *session.Session, fn func(*session.Identity)) {
	sess.Update(fn)
	id, ok := sess.Identity()
	if !ok || sess.TokenID() == "" {
		return
	}
	if err := s.sessions.Save(ctx, sess.TokenID(), id, s.tokens.TTL()); err != nil {
		log.Printf("failed to refresh session for %s: %v", id.UserID, err)
	}
}

func (s *Service) findUser(ctx context.Context, userID string) (*models.User, error) {
	doc, err := s.store.Find(ctx, models.CollectionUsers, userID)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := store.Decode(*doc, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// fanOut applies patch to every document in collection whose field equals value.
func fanOut(ctx context.Context, tx store.Store, collection, field, value string, patch map[string]interface{}) error {
	docs, err := tx.Get(ctx, store.Q(collection, store.Where(field, store.OpEq, value)))
	if err != nil {
		return err
	}
	for _, d := range docs {
		if err := tx.Update(ctx, collection, d.ID, patch); err != nil {
			return err
		}
	}
	return nil
}
