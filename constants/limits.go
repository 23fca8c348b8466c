package constants

// Upload limits for the verification endpoints.
const (
	MaxFiles       = 20
	MaxUploadBytes = 35 << 20 // total multipart payload
)

// Page limits. Text extraction and OCR rasterization read up to 20 pages;
// the composite image for the visual pass stacks at most 10.
const (
	MaxTextPages      = 20
	MaxRenderPages    = 20
	MaxCompositePages = 10
)

// Vision request sizing. Base64 transport inflates binary payloads by
// roughly 4/3 plus framing; 1.37 approximates that. The budget leaves
// headroom under the provider's 50 MB request cap.
const (
	BatchPayloadBudget    = 45 << 20
	Base64InflationFactor = 1.37
)

// Rasterization scale factors (pdftoppm DPI = 72 * scale).
const (
	RenderScalePrinted     = 2.0
	RenderScaleHandwriting = 3.0
)

// Printed-mode preprocessing: payload size over fidelity.
const (
	PrintedMaxWidth    = 2200
	PrintedJPEGQuality = 92
)

// Handwriting-mode preprocessing: fidelity over payload size.
const (
	HandwritingGamma     = 1.2
	HandwritingThreshold = 180
)

// Tiling for handwriting recognition: 2x2 grid with fractional overlap so
// strokes straddling a seam appear in two tiles.
const TileOverlapFraction = 0.10

// Plausibility thresholds: minimum character counts below which an embedded
// text layer is considered absent and visual OCR kicks in.
const (
	MinTextVerify    = 500
	MinTextPreview   = 20
	MinTextTranslate = 10
)

// Refusal handling: outputs shorter than this are treated as implausible and
// retried once with the permissive directive.
const MinPlausibleOCRChars = 8

// Deterministic validation windows.
const (
	PaymentRecencyDays = 60
	DocumentAgeDays    = 365
	AmountTolerancePLN = 1.0
)
