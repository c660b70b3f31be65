package ai

// Classification is the structured result of document classification.
type Classification struct {
	// Manufacturer is the detected equipment manufacturer, empty when unknown.
	Manufacturer string

	// DocType categorizes the document. Should match one of DocTypes.
	DocType string

	// Models lists the equipment model identifiers the document covers.
	Models []string

	// Confidence is the classifier's self-reported score in [0, 1].
	Confidence float64
}

// ImageAnalysis is the structured result of vision analysis over one image.
type ImageAnalysis struct {
	// ImageType categorizes the image (e.g. "wiring_diagram", "exploded_view").
	ImageType string

	// Description is a prose description of the image contents.
	Description string

	// Confidence is the analyzer's self-reported score in [0, 1].
	Confidence float64

	// ContainsText reports whether the image carries readable text worth OCR.
	ContainsText bool

	// Tags are free-form labels for search.
	Tags []string
}

// DocTypes defines the valid categories for document classification.
var DocTypes = []string{
	"service_manual",
	"parts_catalog",
	"installation_guide",
	"operator_manual",
	"wiring_diagram",
	"technical_bulletin",
	"specification_sheet",
}
