package usecase

import (
	"fmt"
	"strings"
)

const contextSeparator = "\n\n---\n\n"

// physicsPrompt frames the question for a Bengali physics teacher persona.
// The instructional block is appended in "rich" mode only.
func physicsPrompt(question, context string, rich bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, `তুমি একজন বাংলা পদার্থবিজ্ঞানের শিক্ষক। এই প্রসঙ্গ ব্যবহার করে প্রশ্নটির উত্তর দাও:

প্রশ্ন: %s

প্রসঙ্গ: %s

উত্তর বাংলায় দাও এবং শিক্ষার্থীদের জন্য সহজবোধ্য করে ব্যাখ্যা করো।`, question, context)

	if rich {
		b.WriteString(`

নির্দেশনা:
- উত্তরটি স্পষ্ট ও সহজ ভাষায় দাও
- প্রয়োজনে উদাহরণ দিয়ে ব্যাখ্যা করো
- শিক্ষার্থীদের বোঝার উপযোগী করে উপস্থাপন করো
- বৈজ্ঞানিক পরিভাষা ব্যবহার করলে তার অর্থ ব্যাখ্যা করো`)
	}
	return b.String()
}

// multiContextPrompt joins up to three context blocks for answers that draw
// on more than one chunk.
func multiContextPrompt(question string, contexts []string) string {
	if len(contexts) > 3 {
		contexts = contexts[:3]
	}
	combined := strings.Join(contexts, contextSeparator)
	return fmt.Sprintf(`তুমি একজন বাংলা পদার্থবিজ্ঞানের শিক্ষক। নিচের একাধিক প্রসঙ্গ ব্যবহার করে প্রশ্নটির উত্তর দাও:

প্রশ্ন: %s

প্রসঙ্গসমূহ:
%s

উত্তর বাংলায় দাও এবং বিভিন্ন প্রসঙ্গের তথ্য একসাথে করে সম্পূর্ণ উত্তর দাও।`, question, combined)
}

// simplePrompt is the minimal form used by the generation health probe.
func simplePrompt(question, context string) string {
	return fmt.Sprintf(`প্রশ্ন: %s
প্রসঙ্গ: %s

সংক্ষেপে উত্তর দাও:`, question, context)
}
