package model

import "time"

// User — локальный пользователь реестра.
// Username совпадает с preferred_username в токене IdP.
type User struct {
	ID       int64
	Username string
	FullName string
	Email    string
	// Role — локальная роль (admin, archivist, operator, viewer)
	Role             string
	ProcessingUnitID *int64
	// Active — неактивные пользователи не проходят аутентификацию
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserFilter — параметры выборки пользователей.
type UserFilter struct {
	// Search — подстрока в username, имени или email
	Search string
	Role   *string
	Page   Page
}

// Actor — пользователь, от имени которого выполняется операция.
// Передаётся явно в каждую операцию записи.
type Actor struct {
	UserID           int64
	Username         string
	Role             string
	ProcessingUnitID *int64
}
