package worlddata

// Expansion classifies regions and zones by the release that added them.
type Expansion struct {
	ID      string
	Name    string
	Color   string
	WikiURL string
}

var Expansions = []Expansion{
	{"base", "Guild Wars 2 Base Game", "#fcba03", "https://wiki.guildwars2.com/wiki/Main_Page"},
	{"lw2", "Living World Season 2", "#24221d", "https://wiki.guildwars2.com/wiki/Living_World_Season_2"},
	{"hot", "Heart of Thorns", "#00a308", "https://wiki.guildwars2.com/wiki/Guild_Wars_2:_Heart_of_Thorns"},
	{"lw3", "Living World Season 3", "#0e3804", "https://wiki.guildwars2.com/wiki/Living_World_Season_3"},
	{"pof", "Path of Fire", "#cc2a06", "https://wiki.guildwars2.com/wiki/Guild_Wars_2:_Path_of_Fire"},
	{"lw4", "Living World Season 4", "#870c71", "https://wiki.guildwars2.com/wiki/Living_World_Season_4"},
	{"eod", "End of Dragons", "#7ec1cf", "https://wiki.guildwars2.com/wiki/Guild_Wars_2:_End_of_Dragons"},
	{"lw5", "Icebrood Saga (Living World Season 5)", "#dea6dd", "https://wiki.guildwars2.com/wiki/The_Icebrood_Saga"},
}

// DefaultExpansion colors features without a known expansion.
var DefaultExpansion = Expansions[0]

func ExpansionByID(id string) (Expansion, bool) {
	for _, e := range Expansions {
		if e.ID == id {
			return e, true
		}
	}
	return DefaultExpansion, false
}
