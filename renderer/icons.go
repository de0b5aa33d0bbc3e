package renderer

import (
	"github.com/nielsole/go_worldmap/settings"
	"github.com/nielsole/go_worldmap/worlddata"
)

// IconURLs are the two variants of one map icon.
type IconURLs struct {
	Incomplete string `mapstructure:"incomplete" json:"incomplete"`
	Complete   string `mapstructure:"complete" json:"complete"`
}

func (i IconURLs) URL(complete bool) string {
	if complete {
		return i.Complete
	}
	return i.Incomplete
}

const (
	IconVista                  = "vista"
	IconPointOfInterest        = "poi"
	IconWaypoint               = "waypoint"
	IconHeart                  = "heart"
	IconHeroChallenge          = "hero_challenge"
	IconHeroChallengeExpansion = "hero_challenge_expansion"
	IconAdventure              = "adventure"
	IconMasteryTyria           = "mastery_tyria"
	IconMasteryHot             = "mastery_hot"
	IconMasteryPof             = "mastery_pof"
	IconMasteryIs              = "mastery_is"
	IconMasteryEod             = "mastery_eod"
)

const wiki = "https://wiki.guildwars2.com/images/"

const masteryNone = wiki + "1/1c/Mastery_point_%28none%29.png"

// DefaultIcons is the icon catalogue of the game wiki.
func DefaultIcons() map[string]IconURLs {
	return map[string]IconURLs{
		IconVista: {
			wiki + "0/02/Vista_empty_%28map_icon%29.png",
			wiki + "f/ff/Vista_%28map_icon%29.png",
		},
		IconPointOfInterest: {
			wiki + "2/2e/Point_of_interest_%28undiscovered%29.png",
			wiki + "7/70/Point_of_interest_%28map_icon%29.png",
		},
		IconWaypoint: {
			wiki + "8/8d/Locked_waypoint_%28map_icon%29.png",
			wiki + "d/d2/Waypoint_%28map_icon%29.png",
		},
		IconHeart: {
			wiki + "2/23/Renown_Heart_empty_%28map_icon%29.png",
			wiki + "6/6e/Renown_Heart_%28map_icon%29.png",
		},
		IconHeroChallenge: {
			wiki + "6/69/Hero_Challenge_empty_%28map_icon%29.png",
			wiki + "6/66/Hero_Challenge_%28map_icon%29.png",
		},
		IconHeroChallengeExpansion: {
			wiki + "9/91/Hero_Challenge_empty_%28Heart_of_Thorns_map_icon%29.png",
			wiki + "8/81/Hero_Challenge_%28Heart_of_Thorns_map_icon%29.png",
		},
		IconAdventure: {
			wiki + "1/13/Adventure_%28map_icon%29.png",
			wiki + "1/13/Adventure_%28map_icon%29.png",
		},
		IconMasteryTyria: {masteryNone, wiki + "b/b7/Mastery_point_%28Central_Tyria%29.png"},
		IconMasteryHot:   {masteryNone, wiki + "8/84/Mastery_point_%28Heart_of_Thorns%29.png"},
		IconMasteryPof:   {masteryNone, wiki + "4/41/Mastery_point_%28Path_of_Fire%29.png"},
		IconMasteryIs:    {masteryNone, wiki + "2/25/Mastery_point_%28Icebrood_Saga%29.png"},
		IconMasteryEod:   {masteryNone, wiki + "b/b6/Mastery_point_%28End_of_Dragons%29.png"},
	}
}

// iconName picks the catalogue entry of a point feature. Unlock points and
// polygons have no icon.
func iconName(f worlddata.Feature) (string, bool) {
	switch p := f.(type) {
	case *worlddata.PointOfInterest:
		switch p.Type {
		case worlddata.POIWaypoint:
			return IconWaypoint, true
		case worlddata.POILandmark:
			return IconPointOfInterest, true
		case worlddata.POIVista:
			return IconVista, true
		}
	case *worlddata.Task:
		return IconHeart, true
	case *worlddata.Challenge:
		if p.Core() {
			return IconHeroChallenge, true
		}
		return IconHeroChallengeExpansion, true
	case *worlddata.Adventure:
		return IconAdventure, true
	case *worlddata.MasteryPoint:
		switch p.Region {
		case worlddata.MasteryTyria:
			return IconMasteryTyria, true
		case worlddata.MasteryMaguuma:
			return IconMasteryHot, true
		case worlddata.MasteryDesert:
			return IconMasteryPof, true
		case worlddata.MasteryTundra:
			return IconMasteryIs, true
		}
		return IconMasteryEod, true
	}
	return "", false
}

// completionToggle returns the show complete / incomplete toggles of a
// point feature.
func completionToggle(s settings.Settings, f worlddata.Feature) settings.Completion {
	switch f.(type) {
	case *worlddata.PointOfInterest:
		return s.PointsOfInterest
	case *worlddata.Task:
		return s.Tasks
	case *worlddata.Challenge:
		return s.Challenges
	case *worlddata.Adventure:
		return s.Adventures
	case *worlddata.MasteryPoint:
		return s.MasteryPoints
	}
	return settings.Completion{ShowComplete: true, ShowIncomplete: true}
}
