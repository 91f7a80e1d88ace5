package llm

// ModelID uniquely identifies a model within its provider's model set.
type ModelID string

// ModelName is the human-readable display name of a model.
type ModelName string

// ProviderID uniquely identifies a provider within a Registry.
type ProviderID string

// ProviderName is the human-readable display name of a provider.
type ProviderName string

func (id ModelID) String() string { return string(id) }

func (n ModelName) String() string { return string(n) }

func (id ProviderID) String() string { return string(id) }

func (n ProviderName) String() string { return string(n) }
