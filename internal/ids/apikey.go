package ids

import "fmt"

const (
	// Product is the leading segment of every API key.
	Product = "byund"

	apiKeySecretLength = 43 // 32 bytes of entropy in base62
)

// APIKeySecret is freshly generated key material. Plaintext is shown to the
// merchant once and then only its hash is kept.
type APIKeySecret struct {
	Plaintext string
	Prefix    string
	Last4     string
}

// NewAPIKeySecret builds "<product>_<kind>_<env>_<random>", for example
// byund_sk_live_4fK...; kind is "sk" or "pk", env is "live" or "test".
func NewAPIKeySecret(kind, env string) (APIKeySecret, error) {
	switch kind {
	case "sk", "pk":
	default:
		return APIKeySecret{}, fmt.Errorf("ids: unknown api key kind %q", kind)
	}
	switch env {
	case "live", "test":
	default:
		return APIKeySecret{}, fmt.Errorf("ids: unknown api key environment %q", env)
	}
	random, err := PublicID(apiKeySecretLength)
	if err != nil {
		return APIKeySecret{}, err
	}
	prefix := Product + "_" + kind + "_" + env
	plaintext := prefix + "_" + random
	return APIKeySecret{
		Plaintext: plaintext,
		Prefix:    prefix,
		Last4:     plaintext[len(plaintext)-4:],
	}, nil
}
