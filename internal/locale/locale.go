// Package locale turns structured notice codes into display strings for a
// client's language tag. The engine only ever passes codes and arguments;
// the prose lives here.
package locale

import (
	"fmt"

	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.English, // first entry is the fallback
	language.French,
}

var matcher = language.NewMatcher(supported)

// Match resolves an arbitrary BCP-47 tag (possibly empty or garbage) to one
// of the supported tags.
func Match(tag string) language.Tag {
	t, err := language.Parse(tag)
	if err != nil {
		return supported[0]
	}
	_, i, _ := matcher.Match(t)
	return supported[i]
}

// T renders a notice code for a tag. Unknown codes come back as the code
// itself so a client bug is visible instead of silent.
func T(tag language.Tag, code string, args ...any) string {
	cat, ok := catalogs[tag]
	if !ok {
		cat = catalogs[supported[0]]
	}
	tmpl, ok := cat[code]
	if !ok {
		if tmpl, ok = catalogs[supported[0]][code]; !ok {
			return code
		}
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

var catalogs = map[language.Tag]map[string]string{
	language.English: {
		"notice.respawn":           "You wake up by the campfire.",
		"notice.name_changed":      "You are now known as %s.",
		"notice.out_of_ammo":       "You are out of arrows.",
		"notice.no_tool":           "You need a %s for that.",
		"notice.wrong_place":       "You cannot build here.",
		"notice.no_materials":      "You are missing materials: %s.",
		"notice.not_member":        "Only community members can do that.",
		"notice.storage_full":      "Nothing to take.",
		"notice.quest_complete":    "Quest complete: %s.",
		"notice.community_founded": "The community %s has been founded.",
		"notice.community_joined":  "%s joined the community.",
		"notice.community_left":    "%s left the community.",
		"notice.already_pending":   "There is already a pending request for that.",
		"approval.join":            "%s asks to join your community.",
		"approval.found":           "%s proposes founding the community %s with you.",
		"approval.build":           "%s proposes building a %s. Approve?",
		"approval.declined":        "The request was declined.",
		"approval.expired":         "The request expired unanswered.",
		"npc.maren.greeting":       "Maren: The fire keeps the wolves away. Mostly.",
		"npc.maren.hint_wood":      "Maren: Bring me firewood and I will make it worth your while.",
	},
	language.French: {
		"notice.respawn":           "Vous vous réveillez près du feu de camp.",
		"notice.name_changed":      "Vous vous appelez désormais %s.",
		"notice.out_of_ammo":       "Vous n'avez plus de flèches.",
		"notice.no_tool":           "Il vous faut un outil de type %s.",
		"notice.wrong_place":       "Impossible de construire ici.",
		"notice.no_materials":      "Matériaux manquants : %s.",
		"notice.not_member":        "Réservé aux membres de la communauté.",
		"notice.storage_full":      "Rien à prendre.",
		"notice.quest_complete":    "Quête accomplie : %s.",
		"notice.community_founded": "La communauté %s a été fondée.",
		"notice.community_joined":  "%s a rejoint la communauté.",
		"notice.community_left":    "%s a quitté la communauté.",
		"notice.already_pending":   "Une demande est déjà en attente pour cette cible.",
		"approval.join":            "%s demande à rejoindre votre communauté.",
		"approval.found":           "%s propose de fonder la communauté %s avec vous.",
		"approval.build":           "%s propose de construire : %s. Approuver ?",
		"approval.declined":        "La demande a été refusée.",
		"approval.expired":         "La demande a expiré sans réponse.",
		"npc.maren.greeting":       "Maren : Le feu tient les loups à distance. En général.",
		"npc.maren.hint_wood":      "Maren : Apportez-moi du bois et vous ne le regretterez pas.",
	},
}
