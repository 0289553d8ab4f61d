package helper

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"letbabytalk/internal/model"
)

var cryReasonSeed = []model.CryReasonDescription{
	{
		ClassName:   "hunger_milk",
		Title:       "Hungry for milk",
		Description: "The cry pattern suggests your baby is hungry and wants to be fed milk.",
		Recommendations: model.StringList{
			"Offer the breast or a bottle",
			"Check when the last feeding was",
			"Watch for rooting and sucking cues before the cry escalates",
		},
	},
	{
		ClassName:   "hunger_food",
		Title:       "Hungry for food",
		Description: "Your baby seems hungry for solid food.",
		Recommendations: model.StringList{
			"Offer age-appropriate solid food",
			"Keep a regular meal schedule",
		},
	},
	{
		ClassName:   "sleepiness",
		Title:       "Sleepy",
		Description: "The cry indicates tiredness and a need for sleep.",
		Recommendations: model.StringList{
			"Dim the lights and reduce noise",
			"Start your usual wind-down routine",
			"Put the baby down while drowsy but awake",
		},
	},
	{
		ClassName:   "lack_of_security",
		Title:       "Needs comfort",
		Description: "Your baby is seeking closeness and reassurance.",
		Recommendations: model.StringList{
			"Hold the baby close or use skin-to-skin contact",
			"Speak or sing softly",
			"Try gentle rocking or swaddling",
		},
	},
	{
		ClassName:   "diaper_urinate",
		Title:       "Wet diaper",
		Description: "Discomfort from a wet diaper.",
		Recommendations: model.StringList{
			"Check and change the diaper",
			"Apply barrier cream if the skin looks irritated",
		},
	},
	{
		ClassName:   "diaper_shit",
		Title:       "Soiled diaper",
		Description: "Discomfort from a soiled diaper.",
		Recommendations: model.StringList{
			"Change the diaper promptly",
			"Clean gently and let the skin dry before closing the fresh diaper",
		},
	},
	{
		ClassName:   "internal_pain",
		Title:       "Internal pain",
		Description: "The cry pattern can indicate internal discomfort such as gas or colic.",
		Recommendations: model.StringList{
			"Burp the baby and try bicycle leg movements",
			"Hold the baby upright after feeding",
			"Contact a pediatrician if the crying persists",
		},
	},
	{
		ClassName:   "external_pain",
		Title:       "External pain",
		Description: "Something external may be hurting your baby.",
		Recommendations: model.StringList{
			"Undress and check the skin, fingers and toes",
			"Check the temperature of the room and clothing",
			"Contact a pediatrician if you find nothing and the crying persists",
		},
	},
	{
		ClassName:   "uncomfortable",
		Title:       "Uncomfortable",
		Description: "Your baby is uncomfortable, possibly too hot, too cold or in an awkward position.",
		Recommendations: model.StringList{
			"Adjust clothing or room temperature",
			"Change the baby's position",
			"Check for tight clothing or tags",
		},
	},
	{
		ClassName:   model.UnknownClass,
		Title:       "Unknown",
		Description: "The cry could not be classified with confidence.",
		Recommendations: model.StringList{
			"Check the basics: hunger, diaper, temperature and tiredness",
			"Offer comfort and try again with a new recording",
		},
	},
}

var legalDocumentSeed = []model.LegalDocument{
	{
		Type:    "terms",
		Locale:  "en",
		Title:   "Terms of Service",
		Content: "<h1>Terms of Service</h1><p>By using LetBabyTalk you agree to these terms.</p>",
	},
	{
		Type:    "privacy",
		Locale:  "en",
		Title:   "Privacy Policy",
		Content: "<h1>Privacy Policy</h1><p>Recordings are processed only to provide cry analysis.</p>",
	},
}

// Seed inserts the reference rows, leaving existing ones untouched.
func Seed(db *gorm.DB) error {
	for _, seed := range cryReasonSeed {
		row := seed
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "class_name"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	for _, seed := range legalDocumentSeed {
		row := seed
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "type"}, {Name: "locale"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}
