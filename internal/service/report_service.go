package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"

	"smartkids/internal/difficulty"
	"smartkids/internal/models"
)

// sesAPI is the part of the SES client the report service calls
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// ReportService emails a parent a summary of a player's progress via Amazon SES
type ReportService struct {
	client    sesAPI
	fromEmail string
	fromName  string
	enabled   bool
}

// NewReportService creates a report service. Without a sender address the
// service is disabled and SendProgressReport does nothing.
func NewReportService(ctx context.Context, awsRegion, fromEmail, fromName string) (*ReportService, error) {
	if fromEmail == "" {
		log.Info().Msg("Progress reports disabled: SES_FROM_EMAIL not configured")
		return &ReportService{enabled: false}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info().Str("from", fromEmail).Str("region", awsRegion).Msg("Progress reports enabled")
	return &ReportService{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
	}, nil
}

// IsEnabled returns whether reports can be sent
func (s *ReportService) IsEnabled() bool {
	return s.enabled
}

// SendProgressReport emails the summary of p to toEmail
func (s *ReportService) SendProgressReport(ctx context.Context, toEmail string, p *models.PlayerProfile) error {
	if !s.enabled {
		log.Info().Str("to", toEmail).Msg("Skipping progress report (service disabled)")
		return nil
	}
	if p == nil {
		return ErrNoProfile
	}

	subject := fmt.Sprintf("%s's learning progress", p.Name)
	htmlBody, textBody := RenderProgressReport(p)
	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// reportRow is one game's line in the report
type reportRow struct {
	name       string
	played     int
	won        int
	winRate    float64
	difficulty int
	override   string
}

func reportRows(p *models.PlayerProfile) []reportRow {
	var rows []reportRow
	for _, id := range models.AllGames {
		g, ok := p.Games[id]
		if !ok || g == nil {
			continue
		}
		override := "auto"
		if g.ManualOverride.IsSet() {
			override = g.ManualOverride.String()
		}
		level := g.CurrentDifficulty
		if level == 0 {
			level = difficulty.Base(p.AgeMonths)
		}
		rows = append(rows, reportRow{
			name:       id.DisplayName(),
			played:     g.GamesPlayed,
			won:        g.GamesWon,
			winRate:    g.WinRate(),
			difficulty: level,
			override:   override,
		})
	}
	return rows
}

// RenderProgressReport builds the HTML and plain text bodies of a report
func RenderProgressReport(p *models.PlayerProfile) (htmlBody, textBody string) {
	rows := reportRows(p)

	var hb strings.Builder
	hb.WriteString(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #f5a623; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		table { width: 100%; border-collapse: collapse; }
		th, td { padding: 6px; border-bottom: 1px solid #ddd; text-align: left; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
`)
	fmt.Fprintf(&hb, "\t\t<div class=\"header\"><h1>%s</h1></div>\n", html.EscapeString(p.Name))
	hb.WriteString("\t\t<div class=\"content\">\n")
	fmt.Fprintf(&hb, "\t\t\t<p>Coins: <strong>%d</strong> &middot; Stars: <strong>%d</strong> &middot; Daily streak: <strong>%d</strong></p>\n",
		p.Coins, p.Stars, p.DailyStreak)
	if len(rows) == 0 {
		hb.WriteString("\t\t\t<p>No games played yet.</p>\n")
	} else {
		hb.WriteString("\t\t\t<table>\n\t\t\t\t<tr><th>Game</th><th>Played</th><th>Won</th><th>Win rate</th><th>Level</th><th>Setting</th></tr>\n")
		for _, r := range rows {
			fmt.Fprintf(&hb, "\t\t\t\t<tr><td>%s</td><td>%d</td><td>%d</td><td>%.0f%%</td><td>%d</td><td>%s</td></tr>\n",
				html.EscapeString(r.name), r.played, r.won, r.winRate*100, r.difficulty, r.override)
		}
		hb.WriteString("\t\t\t</table>\n")
	}
	if len(p.Achievements) > 0 {
		fmt.Fprintf(&hb, "\t\t\t<p>Achievements: %s</p>\n", html.EscapeString(strings.Join(p.Achievements, ", ")))
	}
	hb.WriteString(`		</div>
		<div class="footer">
			<p>This is an automated email from Smart Kids. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`)

	var tb strings.Builder
	fmt.Fprintf(&tb, "Progress report for %s\n\n", p.Name)
	fmt.Fprintf(&tb, "Coins: %d  Stars: %d  Daily streak: %d\n\n", p.Coins, p.Stars, p.DailyStreak)
	if len(rows) == 0 {
		tb.WriteString("No games played yet.\n")
	}
	for _, r := range rows {
		fmt.Fprintf(&tb, "%s: played %d, won %d (%.0f%%), level %d (%s)\n",
			r.name, r.played, r.won, r.winRate*100, r.difficulty, r.override)
	}
	if len(p.Achievements) > 0 {
		fmt.Fprintf(&tb, "\nAchievements: %s\n", strings.Join(p.Achievements, ", "))
	}
	tb.WriteString("\n---\nThis is an automated email from Smart Kids. Please do not reply.\n")

	return hb.String(), tb.String()
}

func (s *ReportService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	ev := log.Info().Str("to", toEmail).Str("subject", subject)
	if result != nil && result.MessageId != nil {
		ev = ev.Str("message_id", *result.MessageId)
	}
	ev.Msg("Progress report sent")
	return nil
}
