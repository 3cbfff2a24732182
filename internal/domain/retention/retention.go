// Пакет retention — вычисление действующей политики хранения
// и сроков хранения единицы хранения.
package retention

import (
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// Источники значения срока хранения.
const (
	SourceFile     = "file"
	SourceCode     = "code"
	SourceAncestor = "ancestor"
	SourceNone     = "none"
)

// Policy — действующая политика хранения.
type Policy struct {
	ClassificationCode string
	ActiveYears        int
	InactiveYears      int
	// ActiveSource, InactiveSource — откуда взято значение (file, code, ancestor, none)
	ActiveSource   string
	InactiveSource string
	// ActiveFromCode, InactiveFromCode — код-предок, если значение унаследовано
	ActiveFromCode   *string
	InactiveFromCode *string

	FinalDisposition       model.FinalDisposition
	SecurityClassification model.SecurityClassification
}

// Schedule — сроки хранения единицы хранения.
// Пустые поля означают, что дата документа не задана.
type Schedule struct {
	Policy        Policy
	ActiveUntil   *time.Time
	InactiveUntil *time.Time
}

// Resolve вычисляет политику по правилу: переопределение в деле,
// иначе значение кода (> 0), иначе ближайший предок со значением > 0, иначе 0.
// chain[0] — собственный код, далее предки от ближайшего. file может быть nil.
func Resolve(file *model.ArchiveFile, chain []model.ClassificationCode) Policy {
	var p Policy
	if len(chain) > 0 {
		own := chain[0]
		p.ClassificationCode = own.Code
		p.FinalDisposition = own.FinalDisposition
		p.SecurityClassification = own.SecurityClassification
	}
	if p.FinalDisposition == "" {
		p.FinalDisposition = model.DispositionReappraise
	}
	if p.SecurityClassification == "" {
		p.SecurityClassification = model.SecurityNormal
	}

	var activeOverride, inactiveOverride *int
	if file != nil {
		activeOverride = file.ActiveRetentionYears
		inactiveOverride = file.InactiveRetentionYears
	}

	p.ActiveYears, p.ActiveSource, p.ActiveFromCode = pick(activeOverride, chain,
		func(c model.ClassificationCode) int { return c.ActiveRetentionYears })
	p.InactiveYears, p.InactiveSource, p.InactiveFromCode = pick(inactiveOverride, chain,
		func(c model.ClassificationCode) int { return c.InactiveRetentionYears })

	return p
}

func pick(override *int, chain []model.ClassificationCode, get func(model.ClassificationCode) int) (int, string, *string) {
	if override != nil {
		return *override, SourceFile, nil
	}
	for i, c := range chain {
		if v := get(c); v > 0 {
			if i == 0 {
				return v, SourceCode, nil
			}
			code := c.Code
			return v, SourceAncestor, &code
		}
	}
	return 0, SourceNone, nil
}

// ScheduleFor вычисляет сроки: активный срок отсчитывается от даты документа,
// неактивный — от окончания активного.
func ScheduleFor(itemDate *time.Time, p Policy) Schedule {
	s := Schedule{Policy: p}
	if itemDate == nil {
		return s
	}
	active := itemDate.AddDate(p.ActiveYears, 0, 0)
	inactive := active.AddDate(p.InactiveYears, 0, 0)
	s.ActiveUntil = &active
	s.InactiveUntil = &inactive
	return s
}
