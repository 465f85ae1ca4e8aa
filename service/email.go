package service

import (
	"fmt"
	"html"

	"shrimpy/config"

	"gopkg.in/gomail.v2"
)

// ErrEmailDisabled 邮件服务未启用
var ErrEmailDisabled = fmt.Errorf("邮件服务未启用，请配置 %s_EMAIL_ENABLED=true", config.EnvPrefix)

// Mailer 注册确认邮件发送方
type Mailer interface {
	SendConfirmationEmail(toEmail, confirmLink string) error
}

// EmailService 邮件服务
type EmailService struct {
	cfg        *config.EmailConfig
	restaurant string
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig, restaurant string) *EmailService {
	if restaurant == "" {
		restaurant = "Shrimpy Seafood"
	}
	return &EmailService{cfg: cfg, restaurant: restaurant}
}

// Enabled 是否启用
func (s *EmailService) Enabled() bool {
	return s.cfg != nil && s.cfg.Enabled
}

// SendConfirmationEmail 发送注册确认邮件，附带纯文本版本
func (s *EmailService) SendConfirmationEmail(toEmail, confirmLink string) error {
	if !s.Enabled() {
		return ErrEmailDisabled
	}

	subject := fmt.Sprintf("[%s] Confirm your account", s.restaurant)
	text := fmt.Sprintf("Confirm your %s admin account by opening this link:\n\n%s\n\nIf you did not sign up, ignore this email.\n",
		s.restaurant, confirmLink)

	return s.sendEmail(toEmail, subject, text, s.generateConfirmationEmailBody(toEmail, confirmLink))
}

// generateConfirmationEmailBody 生成确认邮件 HTML，使用表格布局与内联样式
func (s *EmailService) generateConfirmationEmailBody(toEmail, confirmLink string) string {
	name := html.EscapeString(s.restaurant)
	link := html.EscapeString(confirmLink)
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<body style="margin:0;padding:24px 0;background:#e0f2fe;font-family:Helvetica,Arial,sans-serif;">
<table role="presentation" width="100%%" cellpadding="0" cellspacing="0">
  <tr><td align="center">
    <table role="presentation" width="520" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:10px;">
      <tr><td style="background:#0c4a6e;color:#ffffff;padding:24px;border-radius:10px 10px 0 0;font-size:22px;font-weight:bold;">%s</td></tr>
      <tr><td style="padding:28px 24px;color:#1e293b;font-size:15px;line-height:1.6;">
        Hi %s,<br><br>
        Someone (hopefully you) created an account for the %s admin panel.
        Confirm the address to finish signing up.
      </td></tr>
      <tr><td align="center" style="padding:0 24px 24px;">
        <a href="%s" style="background:#0369a1;color:#ffffff;text-decoration:none;padding:12px 32px;border-radius:6px;font-weight:bold;display:inline-block;">Confirm account</a>
      </td></tr>
      <tr><td style="padding:0 24px 24px;color:#64748b;font-size:12px;word-break:break-all;">
        Button not working? Paste this into your browser:<br>%s
      </td></tr>
      <tr><td style="padding:16px 24px;border-top:1px solid #e2e8f0;color:#94a3b8;font-size:12px;">
        Didn't sign up? You can safely ignore this email.
      </td></tr>
    </table>
  </td></tr>
</table>
</body>
</html>
`, name, html.EscapeString(toEmail), name, link, link)
}

// sendEmail 通过 SMTP 发送 multipart/alternative 邮件
func (s *EmailService) sendEmail(to, subject, text, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.Username, s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}
