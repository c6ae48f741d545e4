package appstore

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/storebridge/internal/storekit"
	"github.com/angelmondragon/storebridge/pkg/config"
	"github.com/angelmondragon/storebridge/pkg/enums"
	"github.com/angelmondragon/storebridge/pkg/logger"
)

// Decoder turns App Store signed payloads into verification results.
// With a root CA configured it verifies the x5c chain and the ES256
// signature; without one it decodes payloads unverified-signature-wise
// but still stamps them verified, which is only acceptable against the
// sandbox environment.
type Decoder struct {
	bundleID    string
	environment enums.Environment
	roots       *x509.CertPool
	logg        *logger.Logger
}

// NewDecoder builds a decoder from configuration, loading the root CA
// bundle when a path is set.
func NewDecoder(cfg config.AppStoreConfig, logg *logger.Logger) (*Decoder, error) {
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "appstore"})
	}
	environment, err := enums.ParseEnvironment(cfg.Environment)
	if err != nil {
		return nil, err
	}

	var roots *x509.CertPool
	if cfg.RootCAPath != "" {
		pem, err := os.ReadFile(cfg.RootCAPath)
		if err != nil {
			return nil, fmt.Errorf("reading root CA bundle: %w", err)
		}
		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.RootCAPath)
		}
	}
	if roots == nil && environment == enums.EnvironmentProduction {
		return nil, fmt.Errorf("a root CA bundle is required against the production environment")
	}

	return &Decoder{
		bundleID:    cfg.BundleID,
		environment: environment,
		roots:       roots,
		logg:        logg,
	}, nil
}

// DecodeTransaction verifies and maps one signed transaction payload.
// Every failure mode collapses into the unverified variant; callers
// decide whether that is fatal.
func (d *Decoder) DecodeTransaction(signed string) storekit.VerificationResult[storekit.Transaction] {
	var claims transactionClaims
	if err := d.parse(signed, &claims); err != nil {
		return storekit.Unverified[storekit.Transaction](err)
	}
	if err := d.checkOrigin(claims.BundleID, claims.Environment); err != nil {
		return storekit.Unverified[storekit.Transaction](err)
	}
	tx, err := claims.transaction()
	if err != nil {
		return storekit.Unverified[storekit.Transaction](err)
	}
	return storekit.Verified(tx, signed)
}

// DecodeRenewalInfo verifies and maps one signed renewal-info payload.
func (d *Decoder) DecodeRenewalInfo(signed string) storekit.VerificationResult[storekit.RenewalInfo] {
	var claims renewalClaims
	if err := d.parse(signed, &claims); err != nil {
		return storekit.Unverified[storekit.RenewalInfo](err)
	}
	info, err := claims.renewalInfo()
	if err != nil {
		return storekit.Unverified[storekit.RenewalInfo](err)
	}
	return storekit.Verified(info, signed)
}

func (d *Decoder) checkOrigin(bundleID, environment string) error {
	if d.bundleID != "" && bundleID != d.bundleID {
		return fmt.Errorf("payload bundle id %q does not match %q", bundleID, d.bundleID)
	}
	if environment != "" && !strings.EqualFold(environment, string(d.environment)) {
		return fmt.Errorf("payload environment %q does not match %q", environment, d.environment)
	}
	return nil
}

func (d *Decoder) parse(signed string, claims jwt.Claims) error {
	if d.roots == nil {
		parser := jwt.NewParser(jwt.WithValidMethods([]string{"ES256"}))
		if _, _, err := parser.ParseUnverified(signed, claims); err != nil {
			return fmt.Errorf("decoding signed payload: %w", err)
		}
		return nil
	}
	if _, err := jwt.ParseWithClaims(signed, claims, d.chainKey, jwt.WithValidMethods([]string{"ES256"})); err != nil {
		return fmt.Errorf("verifying signed payload: %w", err)
	}
	return nil
}

// chainKey extracts the signing key from the x5c header after verifying
// the certificate chain against the configured roots.
func (d *Decoder) chainKey(token *jwt.Token) (any, error) {
	raw, ok := token.Header["x5c"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("signed payload is missing its x5c chain")
	}

	certs := make([]*x509.Certificate, 0, len(raw))
	for i, entry := range raw {
		encoded, ok := entry.(string)
		if !ok {
			return nil, fmt.Errorf("x5c entry %d is not a string", i)
		}
		der, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decoding x5c entry %d: %w", i, err)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("parsing x5c entry %d: %w", i, err)
		}
		certs = append(certs, cert)
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}
	if _, err := certs[0].Verify(x509.VerifyOptions{
		Roots:         d.roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}); err != nil {
		return nil, fmt.Errorf("verifying x5c chain: %w", err)
	}
	return certs[0].PublicKey, nil
}
