package handler

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"betlog-bot/internal/model"
	"betlog-bot/internal/service"
)

const noData = "sin datos"

const welcomeText = "🤖 Analista Deportivo 1x2 activo.\n\n" +
	"Comandos:\n" +
	"/add partido | mercado | selección | cuota | stake% | nota\n" +
	"/open - apuestas abiertas\n" +
	"/result <id> <win|loss|void>\n" +
	"/stats - rendimiento"

const addFormatError = "❌ Formato inválido.\n\n" +
	"Ejemplo:\n" +
	"/add Celta vs PAOK | Corners | Over 8.5 | 1.62 | 2.0 | Buen ritmo"

const (
	resultUsage         = "❌ Uso: /result <id> <win|loss|void>"
	resultInvalidStatus = "❌ Estado inválido. Usa win, loss o void."
	noOpenBets          = "📭 No hay apuestas abiertas."
)

func formatAddConfirmation(id int64, bet *model.NewBet) string {
	note := bet.Note
	if note == "" {
		note = "-"
	}
	return fmt.Sprintf(
		"📊 NUEVA SEÑAL #%d\n\n"+
			"⚽ Partido: %s\n"+
			"🎯 Mercado: %s\n"+
			"✅ Selección: %s\n"+
			"💰 Cuota: %s\n"+
			"📈 Stake: %s%%\n"+
			"📝 Nota: %s",
		id, bet.Match, bet.Market, bet.Pick, bet.Odds.String(), bet.StakePct.String(), note,
	)
}

func formatOpenBets(bets []*model.Bet) string {
	if len(bets) == 0 {
		return noOpenBets
	}

	var b strings.Builder
	b.WriteString("📋 Apuestas abiertas:\n")
	for _, bet := range bets {
		fmt.Fprintf(&b, "\n#%d %s | %s | %s | @%s | %s%%",
			bet.ID, bet.Match, bet.Market, bet.Pick, bet.Odds.String(), bet.StakePct.String())
	}
	return b.String()
}

func formatSettled(rawID string, status model.Status) string {
	return fmt.Sprintf("✅ Apuesta #%s marcada como %s.", rawID, status)
}

func formatNotFound(rawID string) string {
	return fmt.Sprintf("❌ No se encontró una apuesta abierta con id %s.", rawID)
}

func formatStats(s *service.Stats) string {
	return fmt.Sprintf(
		"📊 ESTADÍSTICAS\n"+
			"━━━━━━━━━━━━━━━\n"+
			"Total: %d\n"+
			"Abiertas: %d\n"+
			"Ganadas: %d\n"+
			"Perdidas: %d\n"+
			"Nulas: %d\n"+
			"━━━━━━━━━━━━━━━\n"+
			"🎯 Acierto: %s\n"+
			"💹 ROI: %s",
		s.Total, s.Open, s.Win, s.Loss, s.Void,
		service.FormatPercent(s.HitRate, noData),
		service.FormatPercent(s.ROI, noData),
	)
}

// maxMessageRunes is Telegram's limit for one text message.
const maxMessageRunes = 4096

// splitMessage cuts text into chunks of at most limit runes, breaking at
// newlines where possible.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if chunk := strings.TrimRight(cur.String(), "\n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		cur.Reset()
		n = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		ln := utf8.RuneCountInString(line)
		if n+ln > limit {
			flush()
		}
		for ln > limit {
			r := []rune(line)
			chunks = append(chunks, string(r[:limit]))
			line = string(r[limit:])
			ln -= limit
		}
		cur.WriteString(line)
		n += ln
	}
	flush()

	return chunks
}
