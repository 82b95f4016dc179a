package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/aibanking/conversation-core/internal/banking"
	"github.com/aibanking/conversation-core/internal/model"
)

// Strategy names referenced by intent enrichment requirements.
const (
	StrategyAccountResolution   = "account_resolution"
	StrategyRecipientResolution = "recipient_resolution"
)

// Strategy resolves raw entities against backend records. Strategies read
// the backend but never mutate it, and never mutate the intent.
type Strategy interface {
	Name() string
	CanEnrich(entities model.Entities) bool
	Enrich(ctx context.Context, entities model.Entities) model.Entities
}

// Enricher applies an intent's enrichment requirements in order using an
// explicit strategy registry.
type Enricher struct {
	strategies map[string]Strategy
}

// NewEnricher builds the registry from the given strategies.
func NewEnricher(strategies ...Strategy) *Enricher {
	reg := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		reg[s.Name()] = s
	}
	return &Enricher{strategies: reg}
}

// Enrich runs each strategy the intent asks for. Unknown strategy names are
// skipped. Enrichment failures leave entities untouched; downstream checks
// surface the consequences.
func (e *Enricher) Enrich(ctx context.Context, intent *model.Intent, entities model.Entities) model.Entities {
	if intent == nil || len(intent.EnrichmentRequirements) == 0 {
		return entities
	}
	out := entities.Clone()
	for _, name := range intent.EnrichmentRequirements {
		strategy, ok := e.strategies[name]
		if !ok {
			log.Warn().Str("strategy", name).Str("intent", intent.ID).Msg("Unknown enrichment strategy")
			continue
		}
		if !strategy.CanEnrich(out) {
			continue
		}
		out = strategy.Enrich(ctx, out)
	}
	return out
}

var accountEntityKeys = []model.EntityType{
	model.EntityAccountID,
	model.EntityFromAccount,
	model.EntityToAccount,
	model.EntityAccountType,
	model.EntityAccountName,
}

// AccountResolution resolves account references to backend accounts. When no
// account entity is present at all it resolves the customer's default
// account so informational intents still have a record to read from.
type AccountResolution struct {
	svc banking.Service
}

// NewAccountResolution wires the strategy to the banking backend.
func NewAccountResolution(svc banking.Service) *AccountResolution {
	return &AccountResolution{svc: svc}
}

func (s *AccountResolution) Name() string { return StrategyAccountResolution }

// CanEnrich always applies; an empty entity set resolves the default account.
func (s *AccountResolution) CanEnrich(model.Entities) bool { return true }

func (s *AccountResolution) Enrich(ctx context.Context, entities model.Entities) model.Entities {
	out := entities.Clone()
	resolvedAny := false
	for _, key := range accountEntityKeys {
		entity, ok := out[key]
		if !ok || entity.Enriched != nil {
			if ok && entity.Enriched != nil {
				resolvedAny = true
			}
			continue
		}
		account := s.lookup(ctx, key, entity)
		if account == nil {
			continue
		}
		entity.Enriched = accountRecord(account)
		entity.Source = model.SourceEnrichment
		entity.Confidence = 0.95
		out[key] = entity
		resolvedAny = true
	}

	if !resolvedAny {
		if account := s.defaultAccount(ctx); account != nil {
			out[model.EntityAccountType] = model.Entity{
				Type:       model.EntityAccountType,
				Value:      account.Type,
				Confidence: 0.95,
				Source:     model.SourceEnrichment,
				Enriched:   accountRecord(account),
			}
		}
	}

	dropRedundantAccountType(out)
	return out
}

func (s *AccountResolution) lookup(ctx context.Context, key model.EntityType, entity model.Entity) *model.Account {
	value := strings.ToLower(strings.TrimSpace(entity.Text()))
	if value == "" {
		return nil
	}

	if key == model.EntityAccountID {
		account, err := s.svc.GetAccount(ctx, entity.Text())
		if err != nil {
			return nil
		}
		return account
	}

	if key == model.EntityAccountName {
		accounts, err := s.svc.GetAllAccounts(ctx)
		if err != nil {
			return nil
		}
		for i := range accounts {
			if strings.Contains(strings.ToLower(accounts[i].Name), value) {
				return &accounts[i]
			}
		}
		return nil
	}

	// Type-based lookup. from_account prefers the account whose name marks
	// it as primary; to_account and account_type take the first match.
	accounts, err := s.svc.GetAllAccounts(ctx)
	if err != nil {
		return nil
	}
	var first *model.Account
	for i := range accounts {
		if accounts[i].Type != value {
			continue
		}
		if first == nil {
			first = &accounts[i]
		}
		if key == model.EntityFromAccount && strings.Contains(strings.ToLower(accounts[i].Name), "primary") {
			return &accounts[i]
		}
	}
	return first
}

func (s *AccountResolution) defaultAccount(ctx context.Context) *model.Account {
	accounts, err := s.svc.GetAllAccounts(ctx)
	if err != nil || len(accounts) == 0 {
		return nil
	}
	for i := range accounts {
		if strings.Contains(strings.ToLower(accounts[i].Name), "primary") {
			return &accounts[i]
		}
	}
	return &accounts[0]
}

// dropRedundantAccountType removes a generic account_type entity when a
// from_account or to_account resolved to the same backend account id. The
// transfer-specific entity wins.
func dropRedundantAccountType(entities model.Entities) {
	generic, ok := entities[model.EntityAccountType]
	if !ok || generic.Enriched == nil {
		return
	}
	for _, key := range []model.EntityType{model.EntityFromAccount, model.EntityToAccount} {
		if specific, ok := entities[key]; ok && specific.Enriched != nil && specific.Enriched.ID == generic.Enriched.ID {
			delete(entities, model.EntityAccountType)
			return
		}
	}
}

func accountRecord(a *model.Account) *model.Record {
	return &model.Record{
		ID:       a.ID,
		Name:     a.Name,
		Type:     a.Type,
		Balance:  a.Balance,
		Currency: a.Currency,
	}
}

// RecipientResolution resolves a recipient name to a saved payee. One match
// attaches the full record with its derived transfer type; several matches
// flag disambiguation; none flags not-found.
type RecipientResolution struct {
	svc            banking.Service
	homeBank       string
	homeCountry    string
	homeCustomerID string
}

// NewRecipientResolution wires the strategy to the banking backend.
func NewRecipientResolution(svc banking.Service, homeBank, homeCountry, homeCustomerID string) *RecipientResolution {
	return &RecipientResolution{svc: svc, homeBank: homeBank, homeCountry: homeCountry, homeCustomerID: homeCustomerID}
}

func (s *RecipientResolution) Name() string { return StrategyRecipientResolution }

func (s *RecipientResolution) CanEnrich(entities model.Entities) bool {
	_, ok := entities[model.EntityRecipient]
	return ok
}

func (s *RecipientResolution) Enrich(ctx context.Context, entities model.Entities) model.Entities {
	out := entities.Clone()
	entity, ok := out[model.EntityRecipient]
	if !ok || entity.Enriched != nil {
		return out
	}

	matches, err := s.svc.SearchRecipients(ctx, entity.Text())
	if err != nil {
		log.Warn().Err(err).Msg("Recipient search failed")
		return out
	}

	switch len(matches) {
	case 0:
		entity.NotFound = true
	case 1:
		entity.Enriched = s.recipientRecord(&matches[0])
		entity.Source = model.SourceEnrichment
		entity.Confidence = 0.95
		entity.DisambiguationRequired = false
		entity.Options = nil
	default:
		entity.DisambiguationRequired = true
		entity.Options = make([]model.RecipientOption, 0, len(matches))
		for _, m := range matches {
			entity.Options = append(entity.Options, model.RecipientOption{ID: m.ID, Name: m.Name, BankName: m.BankName})
		}
	}
	out[model.EntityRecipient] = entity
	return out
}

// ResolveByID enriches the recipient entity from a known payee id, used when
// the user answers a disambiguation clarification.
func (s *RecipientResolution) ResolveByID(ctx context.Context, entities model.Entities, recipientID string) model.Entities {
	recipient, err := s.svc.GetRecipientByID(ctx, recipientID)
	if err != nil {
		return entities
	}
	out := entities.Clone()
	entity := out[model.EntityRecipient]
	entity.Type = model.EntityRecipient
	entity.Value = recipient.Name
	entity.Enriched = s.recipientRecord(recipient)
	entity.Source = model.SourceEnrichment
	entity.Confidence = 0.95
	entity.DisambiguationRequired = false
	entity.Options = nil
	entity.NotFound = false
	out[model.EntityRecipient] = entity
	return out
}

func (s *RecipientResolution) recipientRecord(r *model.Recipient) *model.Record {
	return &model.Record{
		ID:            r.ID,
		Name:          r.Name,
		AccountNumber: r.AccountNumber,
		BankName:      r.BankName,
		BankCountry:   r.BankCountry,
		RoutingNumber: r.RoutingNumber,
		SwiftCode:     r.SwiftCode,
		TransferType:  r.TransferType(s.homeBank, s.homeCountry),
		SameCustomer:  r.CustomerID != "" && r.CustomerID == s.homeCustomerID,
	}
}
