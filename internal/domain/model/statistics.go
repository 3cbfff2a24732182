package model

// Statistics — сводные показатели реестра для dashboard.
type Statistics struct {
	ArchiveUnits        int
	ByStatus            map[ArchiveStatus]int
	ByPublishStatus     map[PublishStatus]int
	ArchiveFiles        int
	Handovers           int
	ClassificationCodes int
	ProcessingUnits     int
}

// NewStatistics возвращает Statistics с нулями по всем статусам.
func NewStatistics() *Statistics {
	return &Statistics{
		ByStatus: map[ArchiveStatus]int{
			StatusPending: 0, StatusAccepted: 0, StatusRejected: 0,
		},
		ByPublishStatus: map[PublishStatus]int{
			PublishDraft: 0, PublishPublished: 0,
		},
	}
}
