package advice

import (
	"context"
	"fmt"
	"strings"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/soil"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/textutil"
)

// SimulatorName is the tier name of the offline simulator.
const SimulatorName = "simulator"

const simulatorHeader = "### Senior Agronomist Advice (Simulated)"

// Simulator answers from keyword templates filled with the live metrics. It
// needs no network and never fails.
type Simulator struct{}

// NewSimulator returns the offline tier.
func NewSimulator() *Simulator { return &Simulator{} }

func (s *Simulator) Name() string { return SimulatorName }

// branch is one keyword template. Branches are checked in order.
type branch struct {
	keywords []string
	build    func(m metrics) model.AdviceSections
}

// metrics holds the rendered values the templates cite.
type metrics struct {
	crop     string
	moisture string
	temp     string
	ph       string
	query    string
}

var branches = []branch{
	{keywords: []string{"water", "irrigation"}, build: irrigationSections},
	{keywords: []string{"pest", "bug", "insect"}, build: pestSections},
	{keywords: []string{"fertilizer", "nutrient", "urea"}, build: nutrientSections},
	{keywords: []string{"hindi"}, build: hindiSections},
}

func (s *Simulator) Generate(_ context.Context, g Grounding) (model.AdviceResponse, error) {
	if g.Mode == model.AdviceModeAnalysis {
		rec := soil.Recommend(g.Reading.SoilPH)
		if g.Soil != nil {
			rec = *g.Soil
		}
		return model.AdviceResponse{
			Mode:           model.AdviceModeAnalysis,
			SuggestedCrops: append([]string(nil), rec.SuggestedCrops...),
			SoilAnalysis:   "(Simulated) " + rec.SoilAnalysisNote,
			ActionPlan:     append([]string(nil), rec.ActionPlan...),
		}, nil
	}

	m := metrics{
		crop:     g.Crop,
		moisture: withUnit(g.Reading.SoilMoisturePct, "%"),
		temp:     withUnit(g.Reading.TemperatureC, "°C"),
		ph:       model.FormatFloat(g.Reading.SoilPH),
		query:    g.Query,
	}

	sections := generalSections(m)
	q := textutil.Normalize(g.Query)
	for _, b := range branches {
		if textutil.ContainsAny(q, b.keywords...) {
			sections = b.build(m)
			break
		}
	}
	if g.RainExpected() {
		sections.ImmediateActions = withCaution(sections.ImmediateActions)
	}

	return model.AdviceResponse{
		Mode:       model.AdviceModeConversation,
		AdviceText: Render(sections),
		Sections:   &sections,
	}, nil
}

// Render lays out the four advisory sections as markdown.
func Render(s model.AdviceSections) string {
	var b strings.Builder
	b.WriteString(simulatorHeader)
	b.WriteString("\n\n**Subject: ")
	b.WriteString(s.Subject)
	b.WriteString("**\n\n#### ROOT CAUSE ANALYSIS\n")
	b.WriteString(s.RootCause)
	b.WriteString("\n\n#### IMMEDIATE ACTIONS (Next 48h)\n")
	for _, a := range s.ImmediateActions {
		b.WriteString("- ")
		b.WriteString(a)
		b.WriteString("\n")
	}
	b.WriteString("\n#### LONG-TERM PREVENTION\n")
	b.WriteString(s.LongTermPrevention)
	b.WriteString("\n\n#### SAFETY WARNING\n")
	b.WriteString(s.SafetyWarning)
	return b.String()
}

func irrigationSections(m metrics) model.AdviceSections {
	return model.AdviceSections{
		Subject: "Irrigation Management for " + m.crop,
		RootCause: fmt.Sprintf("Based on your current soil moisture (%s) and temperature (%s), your %s is in a metabolic state "+
			"that requires precise water management. Over-irrigation can lead to root rot, while under-irrigation causes nutrient lockout.",
			m.moisture, m.temp, m.crop),
		ImmediateActions: []string{
			"**Moisture Check:** Verify the top 3 inches of soil. If it feels dusty, provide a deep soak.",
			"**Timing:** Irrigate between 5:00 AM and 8:00 AM to minimize fungal development and evaporation.",
			"**Monitoring:** If rainfall is expected, delay any manual irrigation to prevent nitrogen leaching.",
		},
		LongTermPrevention: "Consider installing a drip irrigation system to deliver water directly to the root zone. " +
			"Mulching with organic matter also helps hold soil moisture more consistently.",
		SafetyWarning: "Avoid overhead sprinkling during hot afternoon hours, as this can cause leaf scald and increase the risk of disease.",
	}
}

func pestSections(m metrics) model.AdviceSections {
	return model.AdviceSections{
		Subject: "Integrated Pest Management (IPM) for " + m.crop,
		RootCause: fmt.Sprintf("Temperature (%s) drives the life cycle of common pests. Your %s is more vulnerable "+
			"when the plant is stressed by moisture swings (soil moisture %s) or pH imbalance (pH %s).",
			m.temp, m.crop, m.moisture, m.ph),
		ImmediateActions: []string{
			"**Manual Scouting:** Inspect the undersides of leaves for eggs or small larvae.",
			"**Organic Intervention:** Apply a 2% neem oil solution or a mild insecticidal soap if infestation is visible.",
			"**Biological Control:** Encourage natural predators like ladybugs or lacewings in your field.",
		},
		LongTermPrevention: fmt.Sprintf("Rotate crops next season to break pest cycles. Keep plants vigorous by holding soil pH near %s.", m.ph),
		SafetyWarning:      "Wear protective gear when applying any treatment, even organic ones. Avoid spraying while bees or other pollinators are active.",
	}
}

func nutrientSections(m metrics) model.AdviceSections {
	return model.AdviceSections{
		Subject: "Nutrient and Soil Health for " + m.crop,
		RootCause: fmt.Sprintf("Soil pH is the primary governor of nutrient availability. At pH %s your %s may have specific needs. "+
			"Outside the 6.0-7.0 range, minerals like phosphorus or iron can be locked in the soil.", m.ph, m.crop),
		ImmediateActions: []string{
			"**Soil Testing:** If you haven't recently, conduct a professional N-P-K test.",
			"**Targeted Feeding:** Use a balanced, slow-release fertilizer if growth appears stunted.",
			"**pH Adjustment:** If pH is too high, add elemental sulfur; if too low, add agricultural lime.",
		},
		LongTermPrevention: "Incorporate well-rotted compost annually to build soil structure and buffer pH over time.",
		SafetyWarning: "Do not over-apply nitrogen fertilizers. Excess nitrogen drives leaf growth at the expense of fruit or grain " +
			"and can contaminate local groundwater.",
	}
}

func hindiSections(m metrics) model.AdviceSections {
	return model.AdviceSections{
		Subject: m.crop + " की फसल के लिए विशेषज्ञ सुझाव",
		RootCause: fmt.Sprintf("नमस्ते! मिट्टी की नमी (%s), pH %s और तापमान (%s) के आधार पर आपकी %s की फसल को सही देखभाल की ज़रूरत है।",
			m.moisture, m.ph, m.temp, m.crop),
		ImmediateActions: []string{
			fmt.Sprintf("**सिंचाई:** मिट्टी की नमी (%s) की जांच करें। सुबह जल्दी पानी देना सबसे अच्छा है।", m.moisture),
			fmt.Sprintf("**मिट्टी का स्वास्थ्य:** आपका pH %s है। इसे संतुलित रखने के लिए जैविक खाद का प्रयोग करें।", m.ph),
			fmt.Sprintf("**तापमान:** अभी तापमान %s है, इसलिए फसल को लू या अधिक गर्मी से बचाएं।", m.temp),
		},
		LongTermPrevention: "हर साल सड़ी हुई कम्पोस्ट मिलाएं ताकि मिट्टी की संरचना मज़बूत रहे।",
		SafetyWarning:      "यह एक सिम्युलेटेड (Simulated) उत्तर है क्योंकि अभी AI सर्विस उपलब्ध नहीं है। कोई भी छिड़काव करते समय सुरक्षा उपकरण पहनें।",
	}
}

func generalSections(m metrics) model.AdviceSections {
	return model.AdviceSections{
		Subject: "General Agronomy Assessment for " + m.crop,
		RootCause: fmt.Sprintf("The query %q indicates an interest in optimizing your %s production. "+
			"Your current parameters (pH: %s, Temp: %s) provide a baseline for analysis.",
			truncateRunes(m.query, 30), m.crop, m.ph, m.temp),
		ImmediateActions: []string{
			"**Routine Inspection:** Walk your fields to check for visible stress signals in the leaves or stems.",
			"**Data Monitoring:** Keep an eye on weather alerts for sudden changes in humidity or rainfall.",
			fmt.Sprintf("**Soil Balance:** Maintain soil pH and moisture at optimal levels for %s.", m.crop),
		},
		LongTermPrevention: fmt.Sprintf("Keep a farm journal to track how your %s responds to weather patterns and interventions.", m.crop),
		SafetyWarning:      "Always prioritize environmental safety and personal protection when performing field operations.",
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
