// auth/client.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"meetvault/internal/domain"
)

// UserInfo представляет информацию о пользователе провайдера аутентификации
type UserInfo struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Client обращается к провайдеру аутентификации по HTTP.
// Сессии и токены живут у провайдера, наш сервис только проверяет их.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

var gClient *Client

// InitClient инициализирует глобальный клиент аутентификации
func InitClient(cfg *Config) {
	gClient = &Client{
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type providerUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	CreatedAt    time.Time              `json:"created_at"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

func (u *providerUser) toUserInfo() (UserInfo, error) {
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return UserInfo{}, fmt.Errorf("invalid user id from auth provider: %w", err)
	}

	info := UserInfo{
		ID:        id,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}

	// Имя и аватар лежат в метаданных, если пользователь их заполнил
	if name, ok := u.UserMetadata["name"].(string); ok {
		info.Name = name
	}
	if avatar, ok := u.UserMetadata["avatar_url"].(string); ok {
		info.AvatarURL = avatar
	}

	return info, nil
}

// VerifyToken проверяет bearer-токен запроса у провайдера
// и возвращает идентификатор пользователя
func VerifyToken(r *http.Request) (uuid.UUID, error) {
	authToken := r.Header.Get("Authorization")
	if authToken == "" {
		return uuid.Nil, fmt.Errorf("no authorization header")
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, gClient.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Authorization", authToken)
	req.Header.Set("apikey", gClient.serviceKey)

	resp, err := gClient.httpClient.Do(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("auth provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return uuid.Nil, fmt.Errorf("invalid token")
	}
	if resp.StatusCode != http.StatusOK {
		return uuid.Nil, fmt.Errorf("auth provider returned status %d", resp.StatusCode)
	}

	var user providerUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	info, err := user.toUserInfo()
	if err != nil {
		return uuid.Nil, err
	}

	return info.ID, nil
}

// GetUser возвращает профиль пользователя по идентификатору
// через админский эндпоинт провайдера
func GetUser(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	url := fmt.Sprintf("%s/auth/v1/admin/users/%s", gClient.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+gClient.serviceKey)
	req.Header.Set("apikey", gClient.serviceKey)

	resp, err := gClient.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth provider returned status %d", resp.StatusCode)
	}

	var user providerUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	info, err := user.toUserInfo()
	if err != nil {
		return nil, err
	}

	return &info, nil
}
