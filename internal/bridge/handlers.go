package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/storebridge/internal/storekit"
	pkgerrors "github.com/angelmondragon/storebridge/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Dispatch routes one inbound method call. Every call performs its own
// validation, at most one store call chain, and reports exactly once.
func (b *Bridge) Dispatch(ctx context.Context, method string, args json.RawMessage) (any, error) {
	start := time.Now()
	ctx = b.logg.WithMethod(ctx, method)

	var result any
	var err error
	switch method {
	case MethodGetProducts:
		result, err = b.handleGetProducts(ctx, args)
	case MethodPurchase:
		result, err = b.handlePurchase(ctx, args)
	case MethodRestore:
		result, err = b.handleRestore(ctx)
	case MethodGetCurrentEntitlements:
		result, err = b.handleGetCurrentEntitlements(ctx)
	case MethodGetSubscriptionStatus:
		result, err = b.handleGetSubscriptionStatus(ctx, args)
	default:
		err = pkgerrors.New(pkgerrors.CodeInvalidArguments, fmt.Sprintf("method %q not implemented", method))
	}

	b.metrics.ObserveCommand(method, time.Since(start))
	if err != nil {
		typed := pkgerrors.Normalize(err)
		b.metrics.IncFailure(method, string(typed.Code()))
		return nil, typed
	}
	return result, nil
}

type getProductsArgs struct {
	ProductIDs []string `json:"productIds"`
}

func (b *Bridge) handleGetProducts(ctx context.Context, args json.RawMessage) (any, error) {
	var payload getProductsArgs
	if err := decodeArgs(args, &payload); err != nil {
		return nil, err
	}
	if payload.ProductIDs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArguments, "productIds is required")
	}
	if len(payload.ProductIDs) == 0 {
		return []map[string]any{}, nil
	}

	products, err := b.store.Products(ctx, payload.ProductIDs)
	if err != nil {
		return nil, pkgerrors.Normalize(err)
	}

	records := make([]map[string]any, 0, len(products))
	for _, product := range products {
		records = append(records, storekit.NormalizeProduct(product))
	}
	return records, nil
}

type purchaseArgs struct {
	ProductID       string `json:"productId" validate:"required"`
	AppAccountToken string `json:"appAccountToken" validate:"omitempty,uuid"`
}

func (b *Bridge) handlePurchase(ctx context.Context, args json.RawMessage) (any, error) {
	var payload purchaseArgs
	if err := decodeArgs(args, &payload); err != nil {
		return nil, err
	}

	var opts storekit.PurchaseOptions
	if payload.AppAccountToken != "" {
		token, err := uuid.Parse(payload.AppAccountToken)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidArguments, err, "invalid appAccountToken")
		}
		opts.AppAccountToken = &token
	}

	products, err := b.store.Products(ctx, []string{payload.ProductID})
	if err != nil {
		return nil, pkgerrors.Normalize(err)
	}
	if len(products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found")
	}

	outcome, err := b.store.Purchase(ctx, payload.ProductID, opts)
	if err != nil {
		return nil, pkgerrors.Normalize(err)
	}

	switch outcome.State {
	case storekit.PurchaseStateCancelled:
		// A user backing out is a null result on the wire, not an error.
		return nil, nil
	case storekit.PurchaseStatePending:
		return nil, pkgerrors.New(pkgerrors.CodePurchasePending, "purchase is pending")
	}

	tx, signed, err := outcome.Transaction.Unwrap()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeVerificationFailed, err, "transaction failed verification")
	}

	if err := b.store.Finish(ctx, tx.ID); err != nil {
		lctx := b.logg.WithTransactionID(ctx, tx.ID)
		b.logg.Warn(b.logg.WithField(lctx, "error", err.Error()), "failed to acknowledge purchased transaction")
	}

	return storekit.NormalizeSignedTransaction(tx, signed), nil
}

func (b *Bridge) handleRestore(ctx context.Context) (any, error) {
	if err := b.store.Sync(ctx); err != nil {
		return nil, pkgerrors.Normalize(err)
	}
	return true, nil
}

func (b *Bridge) handleGetCurrentEntitlements(ctx context.Context) (any, error) {
	entitlements, err := b.store.CurrentEntitlements(ctx)
	if err != nil {
		return nil, pkgerrors.Normalize(err)
	}

	records := make([]map[string]any, 0, len(entitlements))
	for _, result := range entitlements {
		tx, _, err := result.Unwrap()
		if err != nil {
			// Partial verification failure drops this element only.
			b.logg.Warn(ctx, "entitlement failed verification, skipping")
			continue
		}
		records = append(records, storekit.NormalizeTransaction(tx))
	}
	return records, nil
}

type subscriptionStatusArgs struct {
	GroupID string `json:"groupId" validate:"required"`
}

func (b *Bridge) handleGetSubscriptionStatus(ctx context.Context, args json.RawMessage) (any, error) {
	var payload subscriptionStatusArgs
	if err := decodeArgs(args, &payload); err != nil {
		return nil, err
	}

	statuses, err := b.store.SubscriptionStatuses(ctx, payload.GroupID)
	if err != nil {
		return nil, pkgerrors.Normalize(err)
	}

	records := make([]map[string]any, 0, len(statuses))
	for _, status := range statuses {
		records = append(records, storekit.NormalizeSubscriptionStatus(status))
	}
	return records, nil
}

func decodeArgs(args json.RawMessage, dest any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	decoder := json.NewDecoder(bytes.NewReader(args))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidArguments, err, "invalid arguments").
			WithDetails(map[string]any{"error": err.Error()})
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeInvalidArguments, "invalid arguments").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInvalidArguments, err, "invalid arguments")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid uuid"
	}
	return "is invalid"
}
