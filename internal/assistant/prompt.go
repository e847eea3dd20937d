package assistant

import (
	"fmt"
	"regexp"
	"strings"
)

// The assistant speaks Italian and stays on the label's mission: music,
// theory, the platform's artists, and the store.
const systemPromptFormat = `Sei l'assistente olografico di Arte Registrazioni.
Linee guida:
1) Tono: italiano, caloroso, professionale, sintetico ma ricco di valore.
2) Focus: musica, produzione, artisti emergenti, catalogo piattaforma.
3) Conoscenza: teoria musicale, storia della musica occidentale, generi e figure iconiche - fornisci descrizioni brevi e corrette.
4) Biografie richieste: offri una mini-storia (3-6 frasi) sull'artista, poi collega il discorso agli artisti della piattaforma invitando a scoprirli.
5) CTA: quando pertinente chiudi con un invito ad ascoltare gli artisti e ad acquistare i brani preferiti nella sezione "Musica" (BUY MUSIC / Sounds). Non ripetere la CTA se l'hai gia data negli ultimi 2 turni.
6) Se l'utente chiede qualcosa fuori contesto musicale, reindirizza gentilmente alla mission della piattaforma.
7) Se non sei certo di un dettaglio storico, dichiara l'incertezza e offri comunque un suggerimento verificabile.
Pagina attuale: %s.
Risposte sempre concentrate e senza contenuti sensibili.`

const (
	answerNotConfigured = "Servizio AI avanzato non configurato. Uso ancora la logica base."
	answerModerated     = "Il contenuto richiesto non è appropriato. Parliamo di musica, teoria, artisti o ascolto: chiedimi pure qualcosa in quell'ambito."
	answerUnavailable   = "Temporaneamente non disponibile, riprova fra poco."
	answerEmpty         = "Non ho una risposta al momento."

	ctaText = "Ascolta gli artisti e supportali acquistando i brani che ami nella sezione Musica (BUY MUSIC / Sounds)."
)

func systemPrompt(page string) string {
	if page == "" {
		page = "unknown"
	}
	return fmt.Sprintf(systemPromptFormat, page)
}

var (
	reTheory     = regexp.MustCompile(`ii[- ]?v[- ]?i|scala|accord|armonizz|cadenza|poliritm|sintesi sonora`)
	reHistory    = regexp.MustCompile(`barocc|classic|romantic|novecent|impressionismo|bebop|fusion`)
	reCTA        = regexp.MustCompile(`buy music|acquista|scaricare i brani|supportali`)
	reBioYears   = regexp.MustCompile(`\b(1685|1750|1770|1827|1882|1918|1920|1926|1955|1967|1971)\b`)
	reNavigation = regexp.MustCompile(`vai a |pagina |sezione `)
	reMusicScope = regexp.MustCompile(`(?i)musica|artisti|brano|album|genere|scala|accord|ritmo|jazz|rock|classica|elettronica|hip hop`)
)

// Classify buckets an answer into a coarse analytics category.
func Classify(answer string) string {
	t := strings.ToLower(answer)
	switch {
	case reTheory.MatchString(t):
		return "theory"
	case reHistory.MatchString(t):
		return "history"
	case reCTA.MatchString(t):
		return "cta"
	case reBioYears.MatchString(t):
		return "bio"
	case reNavigation.MatchString(t):
		return "navigation"
	default:
		return "general"
	}
}

// shouldAppendCTA decides whether the store call-to-action belongs at
// the end of an answer: only music-scoped answers get it, and never when
// the answer or either of the two most recent logged answers already
// carried one.
func shouldAppendCTA(answer string, recentAnswers []string) bool {
	lower := strings.ToLower(answer)
	if strings.Contains(lower, "buy music") || strings.Contains(lower, "acquista") {
		return false
	}
	for _, prev := range recentAnswers {
		p := strings.ToLower(prev)
		if strings.Contains(p, "buy music") || strings.Contains(p, "acquista") {
			return false
		}
	}
	return reMusicScope.MatchString(answer)
}
