package domain

// ProcessingStatus — производный статус обработки встречи.
// Не хранится в базе, всегда вычисляется из встречи и её аудиозаписей.
type ProcessingStatus string

const (
	// StatusEmpty — у встречи нет ни одной аудиозаписи
	StatusEmpty ProcessingStatus = "empty"
	// StatusProcessing — запись есть, но транскрипт или резюме ещё не готовы
	StatusProcessing ProcessingStatus = "processing"
	// StatusReady — запись есть, транскрипт и резюме присутствуют
	StatusReady ProcessingStatus = "ready"
)

// ResolveStatus вычисляет статус обработки. Чистая функция без побочных
// эффектов. Список записей обычно содержит 0 или 1 элемент, но любое
// положительное количество трактуется как "запись есть".
func ResolveStatus(m *Meeting, records []AudioRecord) ProcessingStatus {
	if len(records) == 0 {
		return StatusEmpty
	}
	if m.HasTranscript() && m.HasSummary() {
		return StatusReady
	}
	return StatusProcessing
}
