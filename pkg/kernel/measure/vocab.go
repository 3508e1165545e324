// Package measure implements the entropy and density scoring engines and
// the termination policy. All detectors are plain pattern tables over
// lowercased text, with no model inference and no randomness, so identical input
// always scores identically.
package measure

import "regexp"

// UnresolvedRefPatterns is the unresolved-reference vocabulary: placeholder
// markers, bracket/brace/angle placeholder syntax, and hedging phrases.
var UnresolvedRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\btbd\b`),
	regexp.MustCompile(`\btodo\b`),
	regexp.MustCompile(`\bfixme\b`),
	regexp.MustCompile(`\bxxx\b`),
	regexp.MustCompile(`\?\?\?`),
	regexp.MustCompile(`<[a-z0-9 _-]+>`),
	regexp.MustCompile(`\{[a-z0-9_]+\}`),
	regexp.MustCompile(`\[[a-z0-9 _-]+\]`),
	regexp.MustCompile(`\bplaceholder\b`),
	regexp.MustCompile(`\bto be (?:determined|decided|defined|specified)\b`),
	regexp.MustCompile(`\bnot (?:yet )?(?:specified|defined|determined|decided)\b`),
	regexp.MustCompile(`\bunknown\b`),
	regexp.MustCompile(`\bunclear\b`),
	regexp.MustCompile(`\bsome kind of\b`),
	regexp.MustCompile(`\bsomething like\b`),
	regexp.MustCompile(`\band so on\b`),
	regexp.MustCompile(`\betc\b`),
	regexp.MustCompile(`\bfill in\b`),
}

// TopicCategory is one of the five required topic categories; a goal that
// does not touch a category has a schema gap.
type TopicCategory struct {
	Name    string
	Pattern *regexp.Regexp
}

// TopicCategories lists the five categories in fixed order.
var TopicCategories = []TopicCategory{
	{"technology", regexp.MustCompile(`\b(?:go|golang|python|rust|java|typescript|javascript|node|react|postgres|postgresql|mysql|sqlite|redis|kafka|rabbitmq|docker|kubernetes|http|https|grpc|rest|graphql|sql|nosql|aws|gcp|azure|linux|cli|api)\b`)},
	{"actors", regexp.MustCompile(`\b(?:user|users|admin|administrator|operator|operators|customer|customers|client|clients|caller|callers|service|services|agent|agents|team|owner)\b`)},
	{"actions", regexp.MustCompile(`\b(?:create|creates|read|reads|update|updates|delete|deletes|build|builds|generate|generates|parse|parses|validate|validates|store|stores|fetch|fetches|send|sends|receive|receives|process|processes|transform|transforms|render|renders|deploy|deploys|run|runs|execute|executes|compute|computes|write|writes|list|lists)\b`)},
	{"data", regexp.MustCompile(`\b(?:data|record|records|file|files|document|documents|schema|schemas|table|tables|field|fields|payload|payloads|message|messages|event|events|json|yaml|csv|database|model|models|entity|entities|state|item|items)\b`)},
	{"error-handling", regexp.MustCompile(`\b(?:error|errors|failure|failures|fail|fails|retry|retries|timeout|timeouts|fallback|exception|exceptions|recover|recovery|rollback|invalid|reject|rejects|validate|validation)\b`)},
}

// ContradictionPair is a named pair of opposite concepts. A contradiction is
// counted when both sides match anywhere in the combined constraint text and
// the pair has not been settled by a decision constraint.
type ContradictionPair struct {
	Name  string
	SideA string // display word for side A, used to phrase splitting questions
	SideB string
	A     *regexp.Regexp
	B     *regexp.Regexp
}

// ContradictionPairs is the fixed opposite-concept table.
var ContradictionPairs = []ContradictionPair{
	{"always-never", "always", "never", regexp.MustCompile(`\balways\b`), regexp.MustCompile(`\bnever\b`)},
	{"encrypted-plaintext", "encrypted", "plaintext", regexp.MustCompile(`\bencrypt(?:ed|ion)?\b`), regexp.MustCompile(`\b(?:plaintext|unencrypted)\b`)},
	{"mutable-immutable", "mutable", "immutable", regexp.MustCompile(`\bmutable\b`), regexp.MustCompile(`\bimmutable\b`)},
	{"online-offline", "online", "offline", regexp.MustCompile(`\bonline\b`), regexp.MustCompile(`\boffline\b`)},
	{"public-private", "public", "private", regexp.MustCompile(`\bpublic\b`), regexp.MustCompile(`\bprivate\b`)},
	{"required-optional", "required", "optional", regexp.MustCompile(`\brequired\b`), regexp.MustCompile(`\boptional\b`)},
	{"stateless-stateful", "stateless", "stateful", regexp.MustCompile(`\bstateless\b`), regexp.MustCompile(`\bstateful\b`)},
	{"strict-lenient", "strict", "lenient", regexp.MustCompile(`\bstrict\b`), regexp.MustCompile(`\blenient\b`)},
	{"sync-async", "synchronous", "asynchronous", regexp.MustCompile(`\bsynchronous\b`), regexp.MustCompile(`\basynchronous\b`)},
}

// DecisionRe matches a decision constraint "decision: <pair>=<side>" that
// settles a contradiction pair. Settled pairs are excluded from the
// contradiction count; this is what lets a decomposition step strictly
// reduce entropy.
var DecisionRe = regexp.MustCompile(`^decision:\s*([a-z0-9-]+)=(\S+)$`)

// BranchingPatterns is the decision-keyword vocabulary. Each match adds one
// to the branching-factor estimate.
var BranchingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bor\b`),
	regexp.MustCompile(`\beither\b`),
	regexp.MustCompile(`\balternatively\b`),
	regexp.MustCompile(`\bdepends?\b`),
	regexp.MustCompile(`\bdepending\b`),
	regexp.MustCompile(`\bconditional(?:ly)?\b`),
	regexp.MustCompile(`\boptionally\b`),
	regexp.MustCompile(`\bmaybe\b`),
	regexp.MustCompile(`\bmight\b`),
	regexp.MustCompile(`\bcould\b`),
	regexp.MustCompile(`\bif (?:necessary|needed)\b`),
}

// AlternativeRe finds a two-way "A or B" span in goal text: the raw
// material for an alternative split.
var AlternativeRe = regexp.MustCompile(`(?i)\b([a-z][\w-]*)\s+or\s+([a-z][\w-]*)\b`)

// ConcreteRe matches concreteness markers inside a single constraint.
// A constraint counts at most once no matter how many markers it holds.
var ConcreteRe = regexp.MustCompile(`\bmust\b|\bshall\b|\bexactly\b|\bspecifically\b|\bprecisely\b|\bat (?:most|least)\b|\bno more than\b|\bversion \d|\bv?\d+(?:\.\d+)+\b|\bport \d+\b|\b\d+ ?(?:ms|s|kb|mb|gb)\b|\butf-8\b|\bsha-?256\b`)

// OutputPhraseRe matches specified-output phrasing over the combined text.
var OutputPhraseRe = regexp.MustCompile(`\boutputs?\b|\bproduces?\b|\breturns?\b|\bgenerates?\b|\bemits?\b|\bwrites? (?:a|an|the)\b|\bfile\b|\bfiles\b|\bendpoint\b|\bschema\b|\breport\b|\bartifact\b`)

// QualifierRe matches qualifier keywords that deepen a single constraint.
var QualifierRe = regexp.MustCompile(`\bwhen\b|\bwhere\b|\bunless\b|\bexcept\b|\bonly\b|\busing\b|\bvia\b|\bwith\b|\bduring\b|\bafter\b|\bbefore\b`)
