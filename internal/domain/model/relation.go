package model

// Имена таблиц реестра.
const (
	TableClassificationCodes = "kode_klasifikasi"
	TableProcessingUnits     = "unit_pengolah"
	TableCategories          = "kategori"
	TableSubCategories       = "sub_kategori"
	TableArchiveFiles        = "berkas_arsip"
	TableArchiveUnits        = "arsip_unit"
	TableHandovers           = "berita_acara_penyerahan"
	TableHandoverItems       = "berita_acara_arsip"
	TableUsers               = "users"
)

// DeletePolicy — действие над дочерними строками при удалении родителя.
type DeletePolicy int

const (
	// PolicyCascade — дочерние строки удаляются вместе с родителем.
	PolicyCascade DeletePolicy = iota + 1
	// PolicyRestrict — удаление родителя запрещено, пока есть ссылки.
	PolicyRestrict
	// PolicySetNull — ссылка в дочерних строках обнуляется.
	PolicySetNull
)

func (p DeletePolicy) String() string {
	switch p {
	case PolicyCascade:
		return "cascade"
	case PolicyRestrict:
		return "restrict"
	case PolicySetNull:
		return "set_null"
	}
	return "unknown"
}

// Violation — вид нарушения при удалении строки со ссылками (для PolicyRestrict).
type Violation string

const (
	ViolationHasChildren             Violation = "has_children"
	ViolationReferencedByArchiveFile Violation = "referenced_by_archive_file"
	ViolationReferencedByHandover    Violation = "referenced_by_handover"
)

// Relation — внешний ключ Child.ChildColumn → Parent.ParentKey и его политика удаления.
type Relation struct {
	Name        string
	Parent      string
	ParentKey   string
	Child       string
	ChildColumn string
	Policy      DeletePolicy
	// Violation — ошибка, которой отклоняется удаление (только для PolicyRestrict)
	Violation Violation
}

// Relations — все связи реестра. Схема БД повторяет те же политики.
var Relations = []Relation{
	{"code_parent", TableClassificationCodes, "code", TableClassificationCodes, "parent_code", PolicyRestrict, ViolationHasChildren},
	{"file_code", TableClassificationCodes, "code", TableArchiveFiles, "classification_code", PolicyRestrict, ViolationReferencedByArchiveFile},
	{"unit_code", TableClassificationCodes, "code", TableArchiveUnits, "classification_code", PolicySetNull, ""},

	{"handover_origin", TableProcessingUnits, "id", TableHandovers, "origin_unit_id", PolicyRestrict, ViolationReferencedByHandover},
	{"handover_destination", TableProcessingUnits, "id", TableHandovers, "destination_unit_id", PolicyRestrict, ViolationReferencedByHandover},
	{"unit_processing_unit", TableProcessingUnits, "id", TableArchiveUnits, "processing_unit_id", PolicySetNull, ""},
	{"file_processing_unit", TableProcessingUnits, "id", TableArchiveFiles, "processing_unit_id", PolicySetNull, ""},
	{"user_processing_unit", TableProcessingUnits, "id", TableUsers, "processing_unit_id", PolicySetNull, ""},

	{"sub_category_category", TableCategories, "id", TableSubCategories, "kategori_id", PolicyCascade, ""},
	{"unit_category", TableCategories, "id", TableArchiveUnits, "category_id", PolicySetNull, ""},
	{"unit_sub_category", TableSubCategories, "id", TableArchiveUnits, "sub_category_id", PolicySetNull, ""},

	{"unit_archive_file", TableArchiveFiles, "id", TableArchiveUnits, "archive_file_id", PolicySetNull, ""},

	{"item_archive_unit", TableArchiveUnits, "id", TableHandoverItems, "archive_unit_id", PolicyRestrict, ViolationReferencedByHandover},
	{"item_handover", TableHandovers, "id", TableHandoverItems, "handover_id", PolicyCascade, ""},

	{"handover_creator", TableUsers, "id", TableHandovers, "created_by", PolicyRestrict, ViolationReferencedByHandover},
	{"unit_verifier", TableUsers, "id", TableArchiveUnits, "verified_by", PolicySetNull, ""},
	{"unit_creator", TableUsers, "id", TableArchiveUnits, "created_by", PolicySetNull, ""},
	{"file_creator", TableUsers, "id", TableArchiveFiles, "created_by", PolicySetNull, ""},
}

// RelationsOf возвращает связи, в которых table является родителем, в порядке объявления.
func RelationsOf(table string) []Relation {
	var result []Relation
	for _, r := range Relations {
		if r.Parent == table {
			result = append(result, r)
		}
	}
	return result
}

// KeyColumn возвращает колонку, по которой на строки таблицы ссылаются дочерние.
func KeyColumn(table string) string {
	if table == TableClassificationCodes {
		return "code"
	}
	return "id"
}
