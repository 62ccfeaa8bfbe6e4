package ai

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/util"
	"github.com/kapu/pulse-kit-go/pkg/errors"
)

var statusCodePattern = regexp.MustCompile(`\b([45]\d{2})\b`)

// GenerateMetadata describes which provider answered.
type GenerateMetadata struct {
	Provider     string
	Model        string
	UsedFallback bool
}

// ModelManagerConfig configures NewModelManager.
type ModelManagerConfig struct {
	OpenAI         ProviderSettings
	XAI            ProviderSettings
	Default        domain.ProviderChoice
	EnableFallback bool
}

// ModelManager routes structured generation to the chosen provider, falls
// back to the other one when allowed, and trips a circuit breaker on upstream
// outages.
type ModelManager struct {
	providers      map[domain.ProviderChoice]JSONProvider
	defaultChoice  domain.ProviderChoice
	enableFallback bool
	circuitBreaker *util.CircuitBreaker
	logger         *zap.Logger
}

func NewModelManager(cfg ModelManagerConfig, logger *zap.Logger) *ModelManager {
	if logger == nil {
		logger = zap.NewNop()
	}

	providers := make(map[domain.ProviderChoice]JSONProvider)
	cfg.OpenAI.Name = "OpenAI"
	if p := NewOpenAIProvider(cfg.OpenAI, logger); p != nil {
		providers[domain.ProviderOpenAI] = p
	} else {
		logger.Info("OpenAI provider disabled (no API key)")
	}
	cfg.XAI.Name = "xAI"
	if p := NewOpenAIProvider(cfg.XAI, logger); p != nil {
		providers[domain.ProviderXAI] = p
	} else {
		logger.Info("xAI provider disabled (no API key)")
	}

	return NewModelManagerWithProviders(providers, cfg.Default, cfg.EnableFallback, logger)
}

// NewModelManagerWithProviders wires already constructed providers.
func NewModelManagerWithProviders(providers map[domain.ProviderChoice]JSONProvider, defaultChoice domain.ProviderChoice, enableFallback bool, logger *zap.Logger) *ModelManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultChoice == "" || !defaultChoice.Valid() {
		defaultChoice = domain.ProviderOpenAI
	}

	mm := &ModelManager{
		providers:      providers,
		defaultChoice:  defaultChoice,
		enableFallback: enableFallback,
		logger:         logger,
	}
	mm.circuitBreaker = util.NewCircuitBreaker(util.CircuitBreakerOptions{
		Name:                "llm",
		FailureThreshold:    constants.CircuitBreakerConfig.FailureThreshold,
		ResetTimeout:        constants.CircuitBreakerConfig.ResetTimeout,
		HealthCheckInterval: constants.CircuitBreakerConfig.HealthCheckInterval,
		HealthCheckTimeout:  constants.CircuitBreakerConfig.HealthCheckTimeout,
		HealthCheck:         mm.healthCheckPing,
	}, logger)

	return mm
}

// HasProvider reports whether choice is configured.
func (mm *ModelManager) HasProvider(choice domain.ProviderChoice) bool {
	_, ok := mm.providers[choice]
	return ok
}

// GenerateJSON runs req against the provider for choice and decodes the JSON
// answer into dest. Every failure is a *errors.ProviderError.
func (mm *ModelManager) GenerateJSON(ctx context.Context, choice domain.ProviderChoice, req Request, dest any) (*GenerateMetadata, error) {
	if !mm.circuitBreaker.CanExecute() {
		status := mm.circuitBreaker.Status()
		mm.logger.Error("AI service unavailable (Circuit OPEN)",
			zap.String("state", status.State.String()),
			zap.Int("failure_count", status.FailureCount),
			zap.Timep("next_retry", status.NextRetryTime),
		)
		return nil, errors.NewProviderError("AI providers temporarily unavailable", "circuit", req.Operation, nil)
	}

	order := mm.providerOrder(choice, req.Pinned)
	if len(order) == 0 {
		return nil, errors.NewProviderError("no provider configured", string(mm.resolve(choice)), req.Operation, nil)
	}

	var (
		failures   []error
		outage     bool
		rateLimits bool
	)
	for i, provider := range order {
		result, err := provider.Generate(ctx, req)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", provider.Name(), err))
			outage = outage || isServiceFailure(err)
			rateLimits = rateLimits || isRateLimitError(err)
			continue
		}
		mm.circuitBreaker.RecordSuccess()

		meta := &GenerateMetadata{Provider: provider.Name(), Model: result.Model, UsedFallback: i > 0}
		if meta.UsedFallback {
			mm.logger.Info("Fallback provider answered",
				zap.String("provider", meta.Provider),
				zap.String("operation", req.Operation),
			)
		}
		if err := decodeJSON(result.Text, dest); err != nil {
			mm.logger.Warn("Failed to unmarshal JSON response",
				zap.String("provider", meta.Provider),
				zap.String("operation", req.Operation),
				zap.String("response_preview", preview(result.Text, 200)),
				zap.Error(err),
			)
			return nil, errors.NewProviderError("invalid JSON from provider", meta.Provider, req.Operation, err)
		}
		return meta, nil
	}

	if outage {
		timeout := constants.CircuitBreakerConfig.ResetTimeout
		if rateLimits {
			timeout = constants.CircuitBreakerConfig.RateLimitTimeout
		}
		mm.circuitBreaker.RecordFailure(timeout)
	}

	return nil, errors.NewProviderError("provider request failed", order[0].Name(), req.Operation, stderrors.Join(failures...))
}

func (mm *ModelManager) resolve(choice domain.ProviderChoice) domain.ProviderChoice {
	if choice != "" && choice.Valid() {
		return choice
	}
	return mm.defaultChoice
}

func (mm *ModelManager) providerOrder(choice domain.ProviderChoice, pinned bool) []JSONProvider {
	primary := mm.resolve(choice)
	var order []JSONProvider
	if p, ok := mm.providers[primary]; ok {
		order = append(order, p)
	}
	if pinned || !mm.enableFallback {
		return order
	}
	for _, other := range []domain.ProviderChoice{domain.ProviderOpenAI, domain.ProviderXAI} {
		if other == primary {
			continue
		}
		if p, ok := mm.providers[other]; ok {
			order = append(order, p)
		}
	}
	return order
}

// Health pings every configured provider concurrently.
func (mm *ModelManager) Health(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(mm.providers))
	healthy := make([]bool, 0, len(mm.providers))
	names := make([]string, 0, len(mm.providers))
	list := make([]JSONProvider, 0, len(mm.providers))
	for _, p := range mm.providers {
		names = append(names, p.Name())
		list = append(list, p)
		healthy = append(healthy, false)
	}

	var wg conc.WaitGroup
	for i, p := range list {
		wg.Go(func() {
			healthy[i] = p.Ping(ctx)
		})
	}
	wg.Wait()

	for i, name := range names {
		results[name] = healthy[i]
	}
	return results
}

func (mm *ModelManager) healthCheckPing(ctx context.Context) bool {
	mm.logger.Info("Health Check: Testing AI providers...")

	results := mm.Health(ctx)
	isHealthy := false
	for _, ok := range results {
		isHealthy = isHealthy || ok
	}

	mm.logger.Info("Health Check: Result",
		zap.Any("providers", results),
		zap.Bool("healthy", isHealthy),
	)
	return isHealthy
}

func (mm *ModelManager) CircuitStatus() util.CircuitBreakerStatus {
	return mm.circuitBreaker.Status()
}

func (mm *ModelManager) ResetCircuit() {
	mm.circuitBreaker.Reset()
}

// decodeJSON strips markdown code fences before unmarshalling.
func decodeJSON(text string, dest any) error {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return fmt.Errorf("empty response")
	}
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```json"))
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```"))
	}
	if strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "```"))
	}
	return json.Unmarshal([]byte(cleaned), dest)
}

// preview cuts s to at most n runes for log fields.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func statusCode(err error) int {
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	if m := statusCodePattern.FindStringSubmatch(err.Error()); len(m) > 1 {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

func isServiceFailure(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) || strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return true
	}
	code := statusCode(err)
	return code >= 500 || code == http.StatusTooManyRequests
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if statusCode(err) == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota")
}
