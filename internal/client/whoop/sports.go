package whoop

import "strconv"

var sportNames = map[int]string{
	-1:  "Activity",
	0:   "Running",
	1:   "Cycling",
	16:  "Baseball",
	17:  "Basketball",
	18:  "Rowing",
	19:  "Fencing",
	20:  "Field Hockey",
	21:  "Football",
	22:  "Golf",
	24:  "Ice Hockey",
	25:  "Lacrosse",
	27:  "Rugby",
	28:  "Sailing",
	29:  "Skiing",
	30:  "Soccer",
	31:  "Softball",
	32:  "Squash",
	33:  "Swimming",
	34:  "Tennis",
	35:  "Track & Field",
	36:  "Volleyball",
	37:  "Water Polo",
	38:  "Wrestling",
	39:  "Boxing",
	42:  "Dance",
	43:  "Pilates",
	44:  "Yoga",
	45:  "Weightlifting",
	47:  "Cross Country Skiing",
	48:  "Functional Fitness",
	49:  "Duathlon",
	51:  "Gymnastics",
	52:  "Hiking/Rucking",
	53:  "Horseback Riding",
	55:  "Kayaking",
	56:  "Martial Arts",
	57:  "Mountain Biking",
	59:  "Powerlifting",
	60:  "Rock Climbing",
	61:  "Paddleboarding",
	62:  "Triathlon",
	63:  "Walking",
	64:  "Surfing",
	65:  "Elliptical",
	66:  "Stairmaster",
	70:  "Meditation",
	71:  "Other",
	73:  "Diving",
	74:  "Operations - Tactical",
	75:  "Operations - Medical",
	76:  "Operations - Flying",
	77:  "Operations - Water",
	82:  "Ultimate",
	83:  "Climber",
	84:  "Jumping Rope",
	85:  "Australian Football",
	86:  "Skateboarding",
	87:  "Coaching",
	88:  "Ice Bath",
	89:  "Commuting",
	90:  "Gaming",
	91:  "Snowboarding",
	92:  "Motocross",
	93:  "Cricket",
	94:  "Pickleball",
	95:  "Badminton",
	96:  "Obstacle Course Racing",
	97:  "Motor Racing",
	98:  "HIIT",
	99:  "Spin",
	100: "Jiu Jitsu",
	101: "Manual Labor",
	103: "Archery",
}

// SportName maps a WHOOP sport id to its display name.
func SportName(id int) string {
	if name, ok := sportNames[id]; ok {
		return name
	}
	return "Sport " + strconv.Itoa(id)
}
