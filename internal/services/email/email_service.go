package email

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v3"

	"github.com/rewear-app/rewear-api/internal/config"
	"github.com/rewear-app/rewear-api/internal/db"
)

// Service отправляет почтовые уведомления через Resend.
// Все отправки best-effort: ошибка письма не влияет на сам обмен.
type Service struct {
	client *resend.Client
	cfg    *config.Config
}

// NewService создает новый почтовый сервис.
// Возвращает nil, если ключ Resend не настроен.
func NewService(cfg *config.Config) *Service {
	if cfg.ResendAPIKey == "" {
		log.Println("RESEND_API_KEY не задан, почтовые уведомления отключены")
		return nil
	}
	return &Service{
		client: resend.NewClient(cfg.ResendAPIKey),
		cfg:    cfg,
	}
}

// send отправляет письмо пользователю по его ID
func (s *Service) send(userID uuid.UUID, subject, html string) {
	user, err := db.GetUserByID(userID)
	if err != nil {
		log.Printf("Ошибка получения пользователя %s для письма: %v", userID, err)
		return
	}
	if user.Email == "" {
		return
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("ReWear <%s>", s.cfg.FromEmail),
		To:      []string{user.Email},
		Subject: subject,
		Html:    html,
	}

	if _, err := s.client.Emails.Send(params); err != nil {
		log.Printf("Ошибка отправки письма пользователю %s: %v", userID, err)
	}
}

// SendSwapRequested уведомляет владельца вещи о новом запросе на обмен
func (s *Service) SendSwapRequested(ownerID uuid.UUID, itemTitle, requesterName string) {
	if requesterName == "" {
		requesterName = "Участник ReWear"
	}

	html := fmt.Sprintf(`
		<h2>Новый запрос на обмен</h2>
		<p>%s хочет обменяться на вашу вещь «%s».</p>
		<p><a href="%s/swaps/incoming">Посмотреть запрос</a></p>
	`, requesterName, itemTitle, s.cfg.FrontendURL)

	s.send(ownerID, "Новый запрос на обмен — "+itemTitle, html)
}

// SendSwapDecisionEmail отправляет решение по запросу на контактный email,
// указанный в самом запросе (он может отличаться от email учётной записи)
func (s *Service) SendSwapDecisionEmail(toEmail, itemTitle, status string) {
	if toEmail == "" {
		return
	}

	html := fmt.Sprintf(`
		<h2>Решение по запросу на обмен</h2>
		<p>Запрос на обмен вещи «%s» теперь в статусе: <b>%s</b>.</p>
		<p><a href="%s/swaps/my-requests">Посмотреть мои запросы</a></p>
	`, itemTitle, status, s.cfg.FrontendURL)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("ReWear <%s>", s.cfg.FromEmail),
		To:      []string{toEmail},
		Subject: "Обновление запроса на обмен — " + itemTitle,
		Html:    html,
	}

	if _, err := s.client.Emails.Send(params); err != nil {
		log.Printf("Ошибка отправки письма на %s: %v", toEmail, err)
	}
}

// SendSwapStatusChanged уведомляет отправителя запроса о решении
func (s *Service) SendSwapStatusChanged(userID uuid.UUID, itemTitle, status string) {
	html := fmt.Sprintf(`
		<h2>Статус вашего запроса изменился</h2>
		<p>Запрос на обмен вещи «%s» теперь в статусе: <b>%s</b>.</p>
		<p><a href="%s/swaps/my-requests">Посмотреть мои запросы</a></p>
	`, itemTitle, status, s.cfg.FrontendURL)

	s.send(userID, "Обновление запроса на обмен — "+itemTitle, html)
}
