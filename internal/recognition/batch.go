package recognition

import (
	"math"

	"github.com/doclab-pl/doclab/constants"
)

// Payload is one encoded image ready for transport.
type Payload struct {
	Data []byte
	MIME string
}

// EstimateEncodedSize approximates the transported size of a binary payload
// after base64 inflation.
func EstimateEncodedSize(rawBytes int) int {
	return int(math.Ceil(float64(rawBytes) * constants.Base64InflationFactor))
}

// PlanBatches greedily partitions payloads into ordered batches whose
// combined estimated transport size stays under budget. Order is never
// changed: recognition correctness depends on reading order. A single
// payload whose estimate alone exceeds the budget becomes its own batch;
// best effort, not an error.
func PlanBatches(payloads []Payload, budget int) [][]Payload {
	var batches [][]Payload
	var cur []Payload
	curBytes := 0

	for _, p := range payloads {
		est := EstimateEncodedSize(len(p.Data))
		if len(cur) > 0 && curBytes+est >= budget {
			batches = append(batches, cur)
			cur = nil
			curBytes = 0
		}
		cur = append(cur, p)
		curBytes += est
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}
