package webhooks

import (
	"net/http"

	"github.com/angelmondragon/storebridge/api/responses"
	"github.com/angelmondragon/storebridge/api/validators"
	"github.com/angelmondragon/storebridge/internal/appstore"
	"github.com/angelmondragon/storebridge/internal/storekit"
	pkgerrors "github.com/angelmondragon/storebridge/pkg/errors"
	"github.com/angelmondragon/storebridge/pkg/logger"
)

// Ingestor accepts decoded transaction updates and feeds them to the
// bridge's update listener.
type Ingestor interface {
	Ingest(result storekit.VerificationResult[storekit.Transaction]) error
}

type appStoreNotificationBody struct {
	SignedPayload string `json:"signedPayload" validate:"required"`
}

// AppStoreNotification receives App Store server notifications (version 2)
// and turns their transaction payloads into update-feed elements.
func AppStoreNotification(decoder *appstore.Decoder, ingestor Ingestor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body appStoreNotificationBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		notification, err := decoder.DecodeNotification(body.SignedPayload)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeVerificationFailed, err, "notification rejected"))
			return
		}

		ctx = logg.WithFields(ctx, map[string]any{
			"notification_type": notification.Type,
			"notification_uuid": notification.UUID,
		})

		if notification.Type == appstore.NotificationTest {
			logg.Info(ctx, "test notification received")
			responses.WriteSuccess(w, map[string]string{"status": "accepted"})
			return
		}

		if notification.Transaction == nil {
			logg.Info(ctx, "notification carried no transaction payload")
			responses.WriteSuccess(w, map[string]string{"status": "accepted"})
			return
		}

		if err := ingestor.Ingest(*notification.Transaction); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnknown, err, "failed to enqueue update"))
			return
		}

		logg.Info(ctx, "notification ingested")
		responses.WriteSuccess(w, map[string]string{"status": "accepted"})
	}
}
