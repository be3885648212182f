// Package catalog manages the services providers offer and lets customers find them.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/meinhoongagan/homeservice-app/models"
	"github.com/meinhoongagan/homeservice-app/session"
	"github.com/meinhoongagan/homeservice-app/store"
)

var (
	ErrNotFound = errors.New("service not found")
	ErrNotYours = errors.New("service belongs to another provider")
)

type Input struct {
	Service     string  `json:"service"`
	Task        string  `json:"task"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

type Catalog struct {
	store store.Store
}

func New(s store.Store) *Catalog {
	return &Catalog{store: s}
}

func (c *Catalog) Add(ctx context.Context, sess *session.Session, in Input) (*models.ProviderService, error) {
	me, err := sess.RequireRole(models.RoleProvider)
	if err != nil {
		return nil, err
	}
	svc := &models.ProviderService{
		ProviderID:    me.UserID,
		ProviderName:  me.Name,
		ProviderImage: me.Image,
		Service:       strings.TrimSpace(in.Service),
		Task:          strings.TrimSpace(in.Task),
		Price:         in.Price,
		Description:   strings.TrimSpace(in.Description),
	}
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	data, err := store.Encode(svc)
	if err != nil {
		return nil, err
	}
	id, err := c.store.Add(ctx, models.CollectionProviderServices, data)
	if err != nil {
		return nil, err
	}
	svc.ID = id
	return svc, nil
}

func (c *Catalog) Update(ctx context.Context, sess *session.Session, id string, in Input) (*models.ProviderService, error) {
	me, err := sess.RequireRole(models.RoleProvider)
	if err != nil {
		return nil, err
	}
	svc, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc.ProviderID != me.UserID {
		return nil, ErrNotYours
	}
	svc.Service = strings.TrimSpace(in.Service)
	svc.Task = strings.TrimSpace(in.Task)
	svc.Price = in.Price
	svc.Description = strings.TrimSpace(in.Description)
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	err = c.store.Update(ctx, models.CollectionProviderServices, id, map[string]interface{}{
		"service":     svc.Service,
		"task":        svc.Task,
		"price":       svc.Price,
		"description": svc.Description,
	}, store.Where("providerId", store.OpEq, me.UserID))
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (c *Catalog) Remove(ctx context.Context, sess *session.Session, id string) error {
	me, err := sess.RequireRole(models.RoleProvider)
	if err != nil {
		return err
	}
	svc, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	if svc.ProviderID != me.UserID {
		return ErrNotYours
	}
	return c.store.Remove(ctx, models.CollectionProviderServices, id)
}

func (c *Catalog) Get(ctx context.Context, id string) (*models.ProviderService, error) {
	doc, err := c.store.Find(ctx, models.CollectionProviderServices, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var svc models.ProviderService
	if err := store.Decode(*doc, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

// Mine lists the signed-in provider's services.
func (c *Catalog) Mine(ctx context.Context, sess *session.Session) ([]models.ProviderService, error) {
	me, err := sess.RequireRole(models.RoleProvider)
	if err != nil {
		return nil, err
	}
	docs, err := c.store.Get(ctx, store.Q(models.CollectionProviderServices,
		store.Where("providerId", store.OpEq, me.UserID)))
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[models.ProviderService](docs)
}

// Search lists the services of one category whose task or provider name
// contains text, ignoring case. An empty text matches everything.
func (c *Catalog) Search(ctx context.Context, category, text string) ([]models.ProviderService, error) {
	q := store.Q(models.CollectionProviderServices)
	if category = strings.TrimSpace(category); category != "" {
		q.Filters = append(q.Filters, store.Where("service", store.OpEq, category))
	}
	docs, err := c.store.Get(ctx, q.Order("price", false))
	if err != nil {
		return nil, err
	}
	all, err := store.DecodeAll[models.ProviderService](docs)
	if err != nil {
		return nil, err
	}
	out := make([]models.ProviderService, 0, len(all))
	for _, s := range all {
		if s.MatchesText(text) {
			out = append(out, s)
		}
	}
	return out, nil
}
