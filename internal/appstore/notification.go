package appstore

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/storebridge/internal/storekit"
)

// Notification types this service reacts to. The full set is larger;
// unrecognized types are passed through with their payloads decoded.
const (
	NotificationDidRenew           = "DID_RENEW"
	NotificationDidChangeRenewal   = "DID_CHANGE_RENEWAL_STATUS"
	NotificationExpired            = "EXPIRED"
	NotificationRefund             = "REFUND"
	NotificationRevoke             = "REVOKE"
	NotificationSubscribed         = "SUBSCRIBED"
	NotificationDidFailToRenew     = "DID_FAIL_TO_RENEW"
	NotificationGracePeriodExpired = "GRACE_PERIOD_EXPIRED"
	NotificationTest               = "TEST"
)

// Notification is a decoded App Store server notification (version 2).
// The embedded transaction and renewal results carry their own verification
// outcome; a chain failure on an inner payload does not fail the envelope.
type Notification struct {
	Type        string
	Subtype     string
	UUID        string
	SignedDate  time.Time
	BundleID    string
	Environment string

	Transaction *storekit.VerificationResult[storekit.Transaction]
	RenewalInfo *storekit.VerificationResult[storekit.RenewalInfo]
}

type notificationClaims struct {
	jwt.RegisteredClaims
	NotificationType string           `json:"notificationType"`
	Subtype          string           `json:"subtype"`
	NotificationUUID string           `json:"notificationUUID"`
	Version          string           `json:"version"`
	SignedDate       int64            `json:"signedDate"`
	Data             notificationData `json:"data"`
}

type notificationData struct {
	BundleID              string `json:"bundleId"`
	Environment           string `json:"environment"`
	SignedTransactionInfo string `json:"signedTransactionInfo"`
	SignedRenewalInfo     string `json:"signedRenewalInfo"`
}

// DecodeNotification verifies the outer envelope and decodes whatever
// inner payloads it carries. Only an unreadable or misaddressed envelope
// is an error.
func (d *Decoder) DecodeNotification(signedPayload string) (*Notification, error) {
	var claims notificationClaims
	if err := d.parse(signedPayload, &claims); err != nil {
		return nil, err
	}
	if claims.Version != "" && claims.Version != "2.0" {
		return nil, fmt.Errorf("unsupported notification version %q", claims.Version)
	}
	if err := d.checkOrigin(claims.Data.BundleID, claims.Data.Environment); err != nil {
		return nil, err
	}

	notification := &Notification{
		Type:        claims.NotificationType,
		Subtype:     claims.Subtype,
		UUID:        claims.NotificationUUID,
		SignedDate:  time.UnixMilli(claims.SignedDate),
		BundleID:    claims.Data.BundleID,
		Environment: claims.Data.Environment,
	}
	if claims.Data.SignedTransactionInfo != "" {
		result := d.DecodeTransaction(claims.Data.SignedTransactionInfo)
		notification.Transaction = &result
	}
	if claims.Data.SignedRenewalInfo != "" {
		result := d.DecodeRenewalInfo(claims.Data.SignedRenewalInfo)
		notification.RenewalInfo = &result
	}
	return notification, nil
}
