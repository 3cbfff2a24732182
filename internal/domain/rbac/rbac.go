// Пакет rbac — роли реестра и правила доступа.
// Итоговая роль = max(роль из групп IdP, локальная роль пользователя).
// Роль можно только повысить, не понизить.
package rbac

import "github.com/bigkaa/goarsip/internal/domain/model"

// Роли в порядке возрастания привилегий.
const (
	RoleViewer    = "viewer"
	RoleOperator  = "operator"
	RoleArchivist = "archivist"
	RoleAdmin     = "admin"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleViewer:    1,
	RoleOperator:  2,
	RoleArchivist: 3,
	RoleAdmin:     4,
}

// GroupMapping — группы IdP, дающие каждую из ролей.
type GroupMapping struct {
	Admin     []string
	Archivist []string
	Operator  []string
	Viewer    []string
}

// EffectiveRole вычисляет итоговую роль = max(idpRole, localRole).
func EffectiveRole(idpRole, localRole string) string {
	return maxRole(idpRole, localRole)
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	highest := roles[0]
	for _, r := range roles[1:] {
		highest = maxRole(highest, r)
	}
	return highest
}

// MapGroupsToRole определяет роль пользователя на основе его групп IdP.
// Возвращает максимальную роль из всех совпадений или пустую строку.
func MapGroupsToRole(groups []string, m GroupMapping) string {
	sets := []struct {
		role string
		set  map[string]bool
	}{
		{RoleAdmin, toSet(m.Admin)},
		{RoleArchivist, toSet(m.Archivist)},
		{RoleOperator, toSet(m.Operator)},
		{RoleViewer, toSet(m.Viewer)},
	}

	var roles []string
	for _, g := range groups {
		for _, s := range sets {
			if s.set[g] {
				roles = append(roles, s.role)
			}
		}
	}

	return HighestRole(roles)
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// AtLeast проверяет, что role не ниже min.
func AtLeast(role, min string) bool {
	w, ok := roleWeight[role]
	return ok && w >= roleWeight[min]
}

// CanEditMasterData — создание и изменение справочников (archivist и выше).
func CanEditMasterData(a model.Actor) bool {
	return AtLeast(a.Role, RoleArchivist)
}

// CanDeleteMasterData — удаление записей справочников (только admin).
func CanDeleteMasterData(a model.Actor) bool {
	return AtLeast(a.Role, RoleAdmin)
}

// CanVerify — смена статуса проверки и публикации (archivist и выше).
func CanVerify(a model.Actor) bool {
	return AtLeast(a.Role, RoleArchivist)
}

// CanAdministerUsers — управление локальными пользователями (только admin).
func CanAdministerUsers(a model.Actor) bool {
	return AtLeast(a.Role, RoleAdmin)
}

// CanWriteArchive проверяет право изменять дела, единицы хранения и акты,
// принадлежащие подразделению unitID. Operator ограничен своим подразделением.
func CanWriteArchive(a model.Actor, unitID *int64) bool {
	switch {
	case AtLeast(a.Role, RoleArchivist):
		return true
	case a.Role == RoleOperator:
		return a.ProcessingUnitID != nil && unitID != nil && *a.ProcessingUnitID == *unitID
	default:
		return false
	}
}

// VisibilityFor возвращает область видимости единиц хранения для пользователя.
func VisibilityFor(a model.Actor) model.Visibility {
	switch {
	case AtLeast(a.Role, RoleArchivist):
		return model.Visibility{All: true}
	case a.Role == RoleOperator:
		return model.Visibility{ProcessingUnitID: a.ProcessingUnitID}
	default:
		return model.Visibility{}
	}
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
