package api

// LoginRequest представляет запрос на аутентификацию оператора
type LoginRequest struct {
	Username string `json:"username"` // имя администратора
	Password string `json:"password"` // пароль в открытом виде, сервер сверяет bcrypt хеш
}

// TokenResponse представляет ответ с токеном доступа
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT access token
	ExpiresIn   int64  `json:"expires_in"`   // время жизни access token в секундах
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
