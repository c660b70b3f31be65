package core

import "fmt"

// Stage identifies one step of the fixed processing sequence.
// The zero value is not a valid stage.
type Stage int

const (
	StageUpload Stage = iota + 1
	StageTextExtraction
	StageTableExtraction
	StageSVGProcessing
	StageImageProcessing
	StageVisualEmbedding
	StageLinkExtraction
	StageChunkPreprocessing
	StageClassification
	StageMetadataExtraction
	StagePartsExtraction
	StageSeriesDetection
	StageStorage
	StageEmbedding
	StageSearchIndexing
)

var stageNames = map[Stage]string{
	StageUpload:             "upload",
	StageTextExtraction:     "text_extraction",
	StageTableExtraction:    "table_extraction",
	StageSVGProcessing:      "svg_processing",
	StageImageProcessing:    "image_processing",
	StageVisualEmbedding:    "visual_embedding",
	StageLinkExtraction:     "link_extraction",
	StageChunkPreprocessing: "chunk_preprocessing",
	StageClassification:     "classification",
	StageMetadataExtraction: "metadata_extraction",
	StagePartsExtraction:    "parts_extraction",
	StageSeriesDetection:    "series_detection",
	StageStorage:            "storage",
	StageEmbedding:          "embedding",
	StageSearchIndexing:     "search_indexing",
}

// String returns the canonical stage name used in persisted status maps.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

// AllStages returns every stage in its fixed execution order.
// The returned slice is a fresh copy; callers may mutate it.
func AllStages() []Stage {
	stages := make([]Stage, 0, len(stageNames))
	for s := StageUpload; s <= StageSearchIndexing; s++ {
		stages = append(stages, s)
	}
	return stages
}

// ParseStage resolves a canonical stage name to its Stage value.
func ParseStage(name string) (Stage, error) {
	for s := StageUpload; s <= StageSearchIndexing; s++ {
		if stageNames[s] == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}
