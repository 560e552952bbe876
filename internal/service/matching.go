package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/events"
	"gridlease-backend/internal/logger"
	"gridlease-backend/internal/repository"
	"gridlease-backend/internal/security"
	"gridlease-backend/internal/utils"
)

// matchingService turns free-text intents into soft matches and, once the
// requester accepts and pays, into leases. Matching-phase failures surface
// as events; payment-phase failures are returned to the caller.
type matchingService struct {
	intents   repository.IntentRepository
	assets    repository.AssetRepository
	leases    LeaseService
	payment   PaymentService
	parser    IntentParser
	verifier  security.SignatureVerifier
	publisher events.Publisher
	logger    *slog.Logger
}

func NewMatchingService(
	intents repository.IntentRepository,
	assets repository.AssetRepository,
	leases LeaseService,
	payment PaymentService,
	parser IntentParser,
	verifier security.SignatureVerifier,
	publisher events.Publisher,
) MatchingService {
	return &matchingService{
		intents:   intents,
		assets:    assets,
		leases:    leases,
		payment:   payment,
		parser:    parser,
		verifier:  verifier,
		publisher: publisher,
		logger:    logger.WithService("matching"),
	}
}

// CreateIntent authenticates the requester's signature over the free-text
// message, runs the parser oracle, persists the intent, and kicks off an
// immediate scan so the requester usually sees a match without waiting for
// the periodic cadence.
func (s *matchingService) CreateIntent(ctx context.Context, requesterWallet, message, signature string) (*domain.Intent, *domain.ParsedIntent, error) {
	if requesterWallet == "" || message == "" {
		return nil, nil, fmt.Errorf("%w: missing wallet or message", domain.ErrInvalidSignature)
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: malformed signature encoding", domain.ErrInvalidSignature)
	}
	if !s.verifier.Verify([]byte(message), sig, requesterWallet) {
		return nil, nil, domain.ErrInvalidSignature
	}

	parsed, err := s.parser.Parse(ctx, message, requesterWallet)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	if err := validateParsedIntent(parsed); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	intent := &domain.Intent{
		ID:              uuid.NewString(),
		RequesterWallet: requesterWallet,
		AssetType:       parsed.AssetType,
		AssetName:       parsed.AssetName,
		DurationMinutes: parsed.DurationMinutes,
		MaxPricePerUnit: parsed.MaxPricePerUnit,
		Action:          parsed.Action,
		Status:          domain.IntentStatusUnresolved,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		return nil, nil, fmt.Errorf("failed to persist intent: %w", err)
	}

	s.logger.Info("Intent created",
		"intent_id", intent.ID,
		"requester", requesterWallet,
		"asset_type", intent.AssetType,
		"duration_minutes", intent.DurationMinutes,
		"max_price", intent.MaxPricePerUnit)

	go func() {
		scanCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.scanIntent(scanCtx, *intent)
	}()

	return intent, parsed, nil
}

func validateParsedIntent(p *domain.ParsedIntent) error {
	if p.Action != domain.IntentActionBuy {
		return fmt.Errorf("unsupported action %q", p.Action)
	}
	if p.DurationMinutes < domain.MinIntentDurationMinutes || p.DurationMinutes > domain.MaxIntentDurationMinutes {
		return fmt.Errorf("duration %d minutes outside [%d, %d]",
			p.DurationMinutes, domain.MinIntentDurationMinutes, domain.MaxIntentDurationMinutes)
	}
	if _, err := utils.ParsePrice(p.MaxPricePerUnit); err != nil {
		return fmt.Errorf("invalid max price: %w", err)
	}
	switch p.AssetType {
	case domain.AssetTypeGPU, domain.AssetTypeCPU, domain.AssetTypePrinter, domain.AssetTypeIoT:
	default:
		return fmt.Errorf("unknown asset type %q", p.AssetType)
	}
	return nil
}

func (s *matchingService) GetIntentStatus(ctx context.Context, intentID string) (*IntentStatus, error) {
	intent, err := s.intents.GetByID(ctx, intentID)
	if err != nil {
		return nil, err
	}

	status := &IntentStatus{Intent: intent}
	if intent.SelectedAssetID != nil {
		asset, err := s.assets.GetByID(ctx, *intent.SelectedAssetID)
		if err == nil {
			status.SelectedAsset = asset
			if cost, costErr := utils.TotalCost(asset.PricePerUnit, intent.DurationMinutes); costErr == nil {
				status.TotalCost = cost
			}
		}
	}
	return status, nil
}

// Scan processes every unresolved intent. Intents holding a candidate are
// excluded at the query so a pending offer is never silently replaced.
// Each intent is isolated: one failure never stops the cycle.
func (s *matchingService) Scan(ctx context.Context) {
	unresolved, err := s.intents.ListUnresolved(ctx)
	if err != nil {
		s.logger.Error("Failed to list unresolved intents", "error", err)
		return
	}
	for _, intent := range unresolved {
		s.scanIntent(ctx, intent)
	}
}

func (s *matchingService) scanIntent(ctx context.Context, intent domain.Intent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while scanning intent", "intent_id", intent.ID, "panic", r)
			s.publishError(intent, fmt.Sprintf("internal error while matching: %v", r))
		}
	}()

	candidates, err := s.assets.FindQualifying(ctx, intent.AssetType, intent.MaxPricePerUnit)
	if err != nil {
		s.logger.Error("Asset lookup failed", "intent_id", intent.ID, "error", err)
		s.publishError(intent, "asset lookup failed, will retry on the next cycle")
		return
	}

	chosen := pickCandidate(candidates, intent.AssetName)
	if chosen == nil {
		s.publisher.Publish(events.Event{
			Kind:            events.KindNoMatch,
			IntentID:        intent.ID,
			RequesterWallet: intent.RequesterWallet,
			Timestamp:       time.Now().UTC(),
			Message: fmt.Sprintf("%s: no %s at or under %s per unit, still searching",
				domain.ErrNoQualifyingAsset, intent.AssetType, intent.MaxPricePerUnit),
		})
		return
	}

	ok, err := s.intents.SetCandidate(ctx, intent.ID, chosen.ID)
	if err != nil {
		s.logger.Error("Failed to record candidate", "intent_id", intent.ID, "error", err)
		s.publishError(intent, "failed to record match, will retry on the next cycle")
		return
	}
	if !ok {
		// The intent moved on (accepted, cancelled, or another scan won).
		return
	}

	totalCost, err := utils.TotalCost(chosen.PricePerUnit, intent.DurationMinutes)
	if err != nil {
		s.logger.Error("Cost projection failed", "intent_id", intent.ID, "error", err)
		totalCost = ""
	}

	s.publisher.Publish(events.Event{
		Kind:            events.KindMatchFound,
		IntentID:        intent.ID,
		RequesterWallet: intent.RequesterWallet,
		Timestamp:       time.Now().UTC(),
		Message: fmt.Sprintf("Found %s at %s per unit for %d minutes",
			chosen.Name, chosen.PricePerUnit, intent.DurationMinutes),
		Asset: &events.AssetRef{
			ID:           chosen.ID,
			Name:         chosen.Name,
			PricePerUnit: chosen.PricePerUnit,
		},
		TotalCost: totalCost,
	})
	s.logger.Info("Candidate selected",
		"intent_id", intent.ID, "asset_id", chosen.ID, "total_cost", totalCost)
}

// pickCandidate takes the cheapest qualifying asset, optionally narrowed by
// a case-insensitive name fragment from the intent.
func pickCandidate(candidates []domain.Asset, nameFilter string) *domain.Asset {
	filter := strings.ToLower(strings.TrimSpace(nameFilter))
	for i := range candidates {
		if filter == "" || strings.Contains(strings.ToLower(candidates[i].Name), filter) {
			return &candidates[i]
		}
	}
	return nil
}

// AcceptAndPay redeems the requester's payment against the selected asset
// and converts the soft match into a lease. If the asset was taken in the
// meantime the intent drops back to unresolved and a match-lost event is
// published alongside the returned error.
func (s *matchingService) AcceptAndPay(ctx context.Context, intentID string, auth domain.PaymentAuthorization) (*domain.Lease, error) {
	intent, err := s.intents.GetByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != domain.IntentStatusCandidateSelected || intent.SelectedAssetID == nil {
		return nil, domain.ErrNoCandidateSelected
	}

	asset, err := s.assets.GetByID(ctx, *intent.SelectedAssetID)
	if err != nil {
		if errors.Is(err, domain.ErrAssetNotFound) {
			s.loseMatch(ctx, intent)
			return nil, domain.ErrAssetUnavailable
		}
		return nil, err
	}
	if asset.Status != domain.AssetStatusAvailable {
		// Visibly taken already; drop the match before the redemption
		// burns the payer's one-shot authorization.
		s.loseMatch(ctx, intent)
		return nil, domain.ErrAssetUnavailable
	}

	redemption, err := s.payment.VerifyAndRedeem(ctx, auth, asset)
	if err != nil {
		return nil, err
	}

	lease, err := s.leases.CreateLease(ctx, asset.ID, redemption.Amount, redemption.Payer)
	if err != nil {
		if errors.Is(err, domain.ErrAssetUnavailable) {
			s.loseMatch(ctx, intent)
		}
		return nil, err
	}

	if err := s.payment.AttachLease(ctx, redemption.Signature, lease.Token); err != nil {
		s.logger.Warn("Failed to attach lease token to payment record",
			"lease_token", lease.Token, "error", err)
	}
	if ok, err := s.intents.MarkFulfilled(ctx, intent.ID, lease.Token); err != nil || !ok {
		s.logger.Warn("Failed to mark intent fulfilled",
			"intent_id", intent.ID, "ok", ok, "error", err)
	}

	s.logger.Info("Intent fulfilled",
		"intent_id", intent.ID, "lease_token", lease.Token, "asset_id", asset.ID)
	return lease, nil
}

// Reject releases the soft match; the asset was never occupied, so only the
// intent's own state changes and the next scan starts over.
func (s *matchingService) Reject(ctx context.Context, intentID string) error {
	intent, err := s.intents.GetByID(ctx, intentID)
	if err != nil {
		return err
	}
	if intent.Status != domain.IntentStatusCandidateSelected {
		return domain.ErrNoCandidateSelected
	}
	if _, err := s.intents.ClearCandidate(ctx, intentID); err != nil {
		return err
	}
	s.logger.Info("Candidate rejected", "intent_id", intentID)
	return nil
}

func (s *matchingService) Cancel(ctx context.Context, intentID string) error {
	return s.intents.Cancel(ctx, intentID)
}

func (s *matchingService) loseMatch(ctx context.Context, intent *domain.Intent) {
	if _, err := s.intents.ClearCandidate(ctx, intent.ID); err != nil {
		s.logger.Error("Failed to clear lost candidate", "intent_id", intent.ID, "error", err)
	}
	s.publisher.Publish(events.Event{
		Kind:            events.KindMatchLost,
		IntentID:        intent.ID,
		RequesterWallet: intent.RequesterWallet,
		Timestamp:       time.Now().UTC(),
		Message:         "The selected asset was taken by another requester, searching again",
	})
}

func (s *matchingService) publishError(intent domain.Intent, message string) {
	s.publisher.Publish(events.Event{
		Kind:            events.KindError,
		IntentID:        intent.ID,
		RequesterWallet: intent.RequesterWallet,
		Timestamp:       time.Now().UTC(),
		Message:         message,
	})
}
