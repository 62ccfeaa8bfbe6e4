package constants

import "time"

var IdeaLimits = struct {
	HookWordLimit     int
	HookMaxChars      int
	OutlineMin        int
	OutlineMax        int
	OutlineLineMax    int
	IdeasMin          int
	IdeasMax          int
	LiteIdeasMin      int
	ItemsPerTopicMax  int
	TopicMergeCap     int
	TopicMaxChars     int
	TrendNotesMax     int
	TrendNoteMaxChars int
	ClustersMax       int
	PainPoints        int
	Quotes            int
	ViralityDefault   int
}{
	HookWordLimit:     18,
	HookMaxChars:      120,
	OutlineMin:        5,
	OutlineMax:        7,
	OutlineLineMax:    140,
	IdeasMin:          5,
	IdeasMax:          6,
	LiteIdeasMin:      3,
	ItemsPerTopicMax:  6,
	TopicMergeCap:     3,
	TopicMaxChars:     140,
	TrendNotesMax:     5,
	TrendNoteMaxChars: 140,
	ClustersMax:       5,
	PainPoints:        3,
	Quotes:            2,
	ViralityDefault:   50,
}

var ReplyLimits = struct {
	Count           int
	MaxChars        int
	FallbackBaseLen int
}{
	Count:           3,
	MaxChars:        180,
	FallbackBaseLen: 120,
}

var RequestLimits = struct {
	SnippetsMax           int
	SnippetMaxChars       int
	NicheMaxChars         int
	TrendSourcesMax       int
	TrendSourcesDefault   int
	TweetMaxChars         int
	ContextMaxChars       int
	UserPostsMin          int
	UserPostsMax          int
	UserPostMaxChars      int
	VoiceMaxChars         int
	CadenceMaxChars       int
	SentenceLengthMaxChar int
	PhrasesMax            int
	PhraseMaxChars        int
	BannedWordsMax        int
	BannedWordMaxChars    int
	BodyMaxBytes          int64
}{
	SnippetsMax:           30,
	SnippetMaxChars:       240,
	NicheMaxChars:         120,
	TrendSourcesMax:       2,
	TrendSourcesDefault:   1,
	TweetMaxChars:         1000,
	ContextMaxChars:       500,
	UserPostsMin:          3,
	UserPostsMax:          50,
	UserPostMaxChars:      240,
	VoiceMaxChars:         480,
	CadenceMaxChars:       240,
	SentenceLengthMaxChar: 160,
	PhrasesMax:            12,
	PhraseMaxChars:        120,
	BannedWordsMax:        20,
	BannedWordMaxChars:    64,
	BodyMaxBytes:          1 << 20,
}

var TrendConfig = struct {
	Window        time.Duration
	CostPerSource float64
	MaxSources    int
	MaxNotes      int
	KeyPrefix     string
	KeyTTL        time.Duration
}{
	Window:        24 * time.Hour,
	CostPerSource: 0.025,
	MaxSources:    2,
	MaxNotes:      5,
	KeyPrefix:     "pulse:trend_usage:",
	KeyTTL:        25 * time.Hour,
}

var ProviderConfig = struct {
	OpenAIModel        string
	OpenAIBaseURL      string
	XAIModel           string
	XAIBaseURL         string
	ClusterMaxTokens   int
	IdeasMaxTokens     int
	RepliesMaxTokens   int
	TrendsMaxTokens    int
	ClusterTemp        float64
	TrendsTemp         float64
	RequestTimeout     time.Duration
	StrictJSONReminder string
}{
	OpenAIModel:        "gpt-4.1-mini",
	OpenAIBaseURL:      "https://api.openai.com/v1/",
	XAIModel:           "grok-3-mini",
	XAIBaseURL:         "https://api.x.ai/v1/",
	ClusterMaxTokens:   800,
	IdeasMaxTokens:     1600,
	RepliesMaxTokens:   400,
	TrendsMaxTokens:    600,
	ClusterTemp:        0.2,
	TrendsTemp:         0.2,
	RequestTimeout:     45 * time.Second,
	StrictJSONReminder: "STRICT JSON ONLY, NO PROSE.",
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
}{
	FailureThreshold:    3,
	ResetTimeout:        30 * time.Second,
	RateLimitTimeout:    5 * time.Minute,
	HealthCheckInterval: 2 * time.Minute,
	HealthCheckTimeout:  10 * time.Second,
}

var RateLimitConfig = struct {
	Limit     int
	Window    time.Duration
	KeyPrefix string
}{
	Limit:     60,
	Window:    time.Hour,
	KeyPrefix: "pulse:ratelimit:",
}

var CacheTTL = struct {
	AnalyticsOptIn time.Duration
}{
	AnalyticsOptIn: 10 * time.Minute,
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
}{
	ReadyTimeout: 5 * time.Second,
}

var SnippetConfig = struct {
	DefaultMaxItems int
	ChunkTokens     int
}{
	DefaultMaxItems: 20,
	ChunkTokens:     1200,
}

var AuthConfig = struct {
	AccessScopes  []string
	SettingsScope string
	RefreshScope  string
}{
	AccessScopes:  []string{"ideas", "replies"},
	SettingsScope: "settings",
	RefreshScope:  "refresh",
}

// AnonymousUser is the user id recorded when a request carries no identity.
const AnonymousUser = "anonymous"
