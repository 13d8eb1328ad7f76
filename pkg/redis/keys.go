package redis

import "strings"

const defaultNamespace = "garage"

// Keyspace builds the namespaced keys shared by the API and the workers.
type Keyspace struct {
	namespace string
}

// NewKeyspace trims the namespace and falls back to "garage".
func NewKeyspace(namespace string) Keyspace {
	namespace = strings.Trim(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		namespace = defaultNamespace
	}
	return Keyspace{namespace: namespace}
}

func (k Keyspace) key(kind string, parts ...string) string {
	ns := k.namespace
	if ns == "" {
		ns = defaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

func (k Keyspace) IdempotencyKey(scope, id string) string { return k.key("idempotency", scope, id) }

func (k Keyspace) RateLimitKey(scope string) string { return k.key("rate_limit", scope) }

// CounterKey names a persistent counter such as the invoice number sequence.
func (k Keyspace) CounterKey(name string) string { return k.key("counter", name) }

func (k Keyspace) AccessSessionKey(accessID string) string {
	return k.key("session", "access", accessID)
}

// LockKey names a worker lease.
func (k Keyspace) LockKey(name string) string { return k.key("lock", name) }
