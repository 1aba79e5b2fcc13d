// Package observability provides metrics for scheduler interactions.
package observability

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrOp      = "op"
	attrExit    = "exit"
	attrKind    = "kind"
	attrQueue   = "queue"
	attrChained = "chained"
	attrSuccess = "success"
)

func opAttr(op string) attribute.KeyValue {
	return attribute.String(attrOp, op)
}

func exitAttr(code int) attribute.KeyValue {
	// Group exit codes to reduce cardinality
	return attribute.String(attrExit, exitGroup(code))
}

func kindAttr(kind string) attribute.KeyValue {
	return attribute.String(attrKind, kind)
}

func queueAttr(queue string) attribute.KeyValue {
	if queue == "" {
		queue = "default"
	}
	return attribute.String(attrQueue, queue)
}

func chainedAttr(chained bool) attribute.KeyValue {
	return attribute.Bool(attrChained, chained)
}

func successAttr(success bool) attribute.KeyValue {
	return attribute.Bool(attrSuccess, success)
}

// exitGroup buckets process exit codes: 0, 255 (job reference errors) and
// everything else.
func exitGroup(code int) string {
	switch code {
	case 0:
		return "ok"
	case 255:
		return "255"
	case -1:
		return "not_run"
	default:
		return "error"
	}
}
