// Package seed loads founder merchants from a YAML file. Every merchant
// account needs an invitation from an existing store, so the first stores
// have to come from somewhere else.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"cybermarket/internal/model"
	"cybermarket/internal/repository"
)

// File is the root of a seed document.
type File struct {
	Merchants []Founder `yaml:"merchants"`
}

// Founder is a merchant created without an invitation.
type Founder struct {
	Storename   string   `yaml:"storename"`
	Description string   `yaml:"description"`
	Email       string   `yaml:"email"`
	Password    string   `yaml:"password"`
	Invitations []string `yaml:"invitations"`
}

// Store is the persistence the seeder needs.
type Store interface {
	GetMerchantByStorename(ctx context.Context, storename string) (*model.Merchant, error)
	CreateMerchant(ctx context.Context, m *model.Merchant, claim *model.Invitation) error
	CreateInvitation(ctx context.Context, inv *model.Invitation) error
}

// Result counts what Apply did.
type Result struct {
	Created     int
	Skipped     int
	Invitations int
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	seen := make(map[string]bool, len(f.Merchants))
	for i, m := range f.Merchants {
		switch {
		case m.Storename == "":
			return fmt.Errorf("seed merchant %d: storename is required", i)
		case m.Email == "":
			return fmt.Errorf("seed merchant %q: email is required", m.Storename)
		case m.Password == "":
			return fmt.Errorf("seed merchant %q: password is required", m.Storename)
		case seen[m.Storename]:
			return fmt.Errorf("seed merchant %q: duplicate storename", m.Storename)
		}
		seen[m.Storename] = true
	}
	return nil
}

// Apply creates every founder whose storename is not taken yet, along with
// its initial invitation codes. Existing stores are left alone, so running
// it on every start is safe.
func Apply(ctx context.Context, store Store, f *File) (Result, error) {
	var res Result

	for _, founder := range f.Merchants {
		_, err := store.GetMerchantByStorename(ctx, founder.Storename)
		if err == nil {
			res.Skipped++
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return res, fmt.Errorf("failed to look up %q: %w", founder.Storename, err)
		}

		m := &model.Merchant{
			Storename:   founder.Storename,
			Description: founder.Description,
			Email:       founder.Email,
			Password:    founder.Password,
		}
		if err := store.CreateMerchant(ctx, m, nil); err != nil {
			return res, fmt.Errorf("failed to create %q: %w", founder.Storename, err)
		}
		res.Created++

		for _, code := range founder.Invitations {
			if err := store.CreateInvitation(ctx, &model.Invitation{Issuer: m.Storename, Code: code}); err != nil {
				return res, fmt.Errorf("failed to add invitation for %q: %w", founder.Storename, err)
			}
			res.Invitations++
		}
	}

	log.Printf("[Seed] %d merchants created, %d already present, %d invitations added",
		res.Created, res.Skipped, res.Invitations)
	return res, nil
}
