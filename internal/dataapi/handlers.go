package dataapi

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rafaeljc/recommender/internal/logger"
	"github.com/rafaeljc/recommender/internal/recommendation"
	"github.com/rafaeljc/recommender/internal/statistics"
)

// GetRecommendations returns the recommendations of a user.
//
// It returns:
//   - OK with the (possibly empty) recommendation list.
//   - INVALID_ARGUMENT if the user id is missing or not a UUID.
//   - DEADLINE_EXCEEDED or CANCELED when the call ends first.
//   - INTERNAL for anything else.
func (a *API) GetRecommendations(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	log := logger.FromContext(ctx)

	// 1. Input validation
	userID := strings.TrimSpace(req.GetValue())
	if userID == "" {
		log.Warn("bad request: missing user id")
		return nil, status.Error(codes.InvalidArgument, "user id is required")
	}

	// 2. Evaluate
	recs, err := a.recommendations.RecommendationsFor(ctx, userID)
	if err != nil {
		if errors.Is(err, recommendation.ErrInvalidUserID) {
			return nil, status.Error(codes.InvalidArgument, "user id must be a valid UUID")
		}
		if st, ok := contextStatus(err); ok {
			return nil, st.Err()
		}
		log.Error("failed to compute recommendations", slog.String("user_id", userID), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to compute recommendations")
	}

	// 3. Encode
	canonical, _ := recommendation.CanonicalUserID(userID)
	items := make([]any, 0, len(recs))
	for _, r := range recs {
		items = append(items, map[string]any{"id": r.ID, "name": r.Name, "text": r.Text})
	}
	return encode(log, map[string]any{
		"user_id":         canonical,
		"recommendations": items,
	})
}

// GetRuleStatistic returns a rule's trigger counter, including the retained
// counter of a deleted rule.
//
// It returns NOT_FOUND when neither a rule nor a counter exists.
func (a *API) GetRuleStatistic(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	log := logger.FromContext(ctx)

	productID := strings.TrimSpace(req.GetValue())
	if productID == "" {
		return nil, status.Error(codes.InvalidArgument, "product id is required")
	}

	report, err := a.stats.StatisticByProductID(ctx, productID)
	if err != nil {
		if errors.Is(err, statistics.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "no rule or statistic for this product")
		}
		if st, ok := contextStatus(err); ok {
			return nil, st.Err()
		}
		log.Error("failed to read rule statistic", slog.String("product_id", productID), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to read rule statistic")
	}

	fields := map[string]any{
		"product_id":   report.ProductID,
		"product_name": report.ProductName,
		"count":        float64(report.TriggerCount),
		"active":       report.Active,
		"rule_exists":  report.RuleExists,
	}
	if report.LastTriggeredAt != nil {
		fields["last_triggered_at"] = report.LastTriggeredAt.UTC().Format(time.RFC3339Nano)
	}
	return encode(log, fields)
}

func encode(log *slog.Logger, fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// contextStatus maps context errors onto their gRPC codes.
func contextStatus(err error) (*status.Status, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, "request deadline exceeded"), true
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, "request canceled"), true
	default:
		return nil, false
	}
}
