package derive

// Attributes are the five Tamer attributes.
type Attributes struct {
	Agility      int `json:"agility" yaml:"agility"`
	Body         int `json:"body" yaml:"body"`
	Charisma     int `json:"charisma" yaml:"charisma"`
	Intelligence int `json:"intelligence" yaml:"intelligence"`
	Willpower    int `json:"willpower" yaml:"willpower"`
}

// Skills are the fifteen Tamer skills.
type Skills struct {
	Dodge      int `json:"dodge" yaml:"dodge"`
	Fight      int `json:"fight" yaml:"fight"`
	Stealth    int `json:"stealth" yaml:"stealth"`
	Athletics  int `json:"athletics" yaml:"athletics"`
	Endurance  int `json:"endurance" yaml:"endurance"`
	FeatsOfStr int `json:"featsOfStrength" yaml:"featsOfStrength"`
	Manipulate int `json:"manipulate" yaml:"manipulate"`
	Perform    int `json:"perform" yaml:"perform"`
	Persuasion int `json:"persuasion" yaml:"persuasion"`
	Computer   int `json:"computer" yaml:"computer"`
	Survival   int `json:"survival" yaml:"survival"`
	Knowledge  int `json:"knowledge" yaml:"knowledge"`
	Perception int `json:"perception" yaml:"perception"`
	Decipher   int `json:"decipherIntent" yaml:"decipherIntent"`
	Bravery    int `json:"bravery" yaml:"bravery"`
}

// TamerStats are the derived Tamer statistics.
type TamerStats struct {
	WoundBoxes     int `json:"woundBoxes"`
	Speed          int `json:"speed"`
	AccuracyPool   int `json:"accuracyPool"`
	DodgePool      int `json:"dodgePool"`
	Armor          int `json:"armor"`
	Damage         int `json:"damage"`
	MaxInspiration int `json:"maxInspiration"`
}

// ComputeTamer derives TamerStats.
//
// Postcondition: WoundBoxes >= 2 and MaxInspiration >= 1.
func ComputeTamer(a Attributes, s Skills) TamerStats {
	return TamerStats{
		WoundBoxes:     max(2, a.Body+s.Endurance),
		Speed:          a.Agility + s.Survival,
		AccuracyPool:   a.Agility + s.Fight,
		DodgePool:      a.Agility + s.Dodge,
		Armor:          a.Body + s.Endurance,
		Damage:         a.Body + s.Fight,
		MaxInspiration: max(1, a.Willpower),
	}
}
