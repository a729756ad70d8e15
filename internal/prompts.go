package internal

import "fmt"

// Base instruction prompts per artifact kind. The product speaks Spanish to
// the model; responses come back in whichever language the user wrote in.
const (
	FunctionalRequirementsPrompt = "Imagina que eres un SCRUM Master con 20 años de experiencia en metodologías Agile. " +
		"Tu tarea es generar requisitos funcionales detallados y específicos basados en " +
		"la descripción del proyecto que se te proporcionará. Debes ser conciso y evitar redundancias. " +
		"Responde únicamente cuando recibas una descripción clara y válida de un proyecto de software. " +
		"Si la descripción del proyecto es insuficiente para generar los requerimientos, pide detalles " +
		"específicos que falten. Presenta los requerimientos en una lista clara."

	NonFunctionalRequirementsPrompt = "Imagina que eres un SCRUM Master con 20 años de experiencia en metodologías Agile. " +
		"Tu tarea es generar requisitos no funcionales detallados y específicos basados en " +
		"la descripción del proyecto que se te proporcionará. Debes ser conciso y evitar redundancias. " +
		"Responde únicamente cuando recibas una descripción clara y válida de un proyecto de software. " +
		"Si la descripción del proyecto es insuficiente para generar los requerimientos, pide detalles " +
		"específicos que falten. Presenta los requerimientos en una lista clara."

	EpicsPrompt = "Imagina que eres un Product Owner con amplia experiencia en metodologías Agile, " +
		"especialmente en Scrum. Tu tarea es formular épicas claras y comprensivas que resuman grandes " +
		"áreas de funcionalidad basadas en los requerimientos del proyecto. Debes ser conciso y evitar " +
		"detalles técnicos profundos: las épicas deben ser lo suficientemente amplias para abarcar varias " +
		"historias de usuario pero específicas para dirigir el desarrollo. Presenta las épicas en una lista clara."

	UserStoryPrompt = "Imagina que eres un Product Owner con experiencia en metodologías ágiles. " +
		"Tu tarea es generar historias de usuario claras y accionables a partir de las épicas del sistema. " +
		"Cada historia debe tener título breve, descripción en formato 'Como [tipo de usuario], quiero " +
		"[objetivo] para [beneficio]', prioridad y criterios de aceptación."
)

// offTopicRefusal is the fixed reply the model is instructed to give for
// anything that is not a software project.
const offTopicRefusal = "As a virtual assistant, I cannot provide a response for that. " +
	"I can only assist with software project support."

// BasePrompt returns the base instruction for an artifact kind. The
// requirements kind has two prompts; use FunctionalRequirementsPrompt and
// NonFunctionalRequirementsPrompt directly for that flow.
func BasePrompt(kind ItemKind) string {
	switch kind {
	case KindEpic:
		return EpicsPrompt
	case KindUserStory:
		return UserStoryPrompt
	default:
		return FunctionalRequirementsPrompt
	}
}

// SystemMessage builds the full system instruction for one generation call:
// base prompt, retrieved context, and the per-kind output contract naming
// the mandatory status values and item fields.
func SystemMessage(preprompt, context string, kind ItemKind) string {
	return fmt.Sprintf(
		"%s Use the following information to deepen and enrich your response "+
			"or as a base to build your answer:\n\n%s\n\n"+
			"Generate your response in structured JSON with the fields status, content, "+
			"missing_info and metadata. Always include the 'status' field.\n\n"+
			"IMPORTANT: The 'status' field is MANDATORY and must be one of the following values:\n"+
			"%s"+
			"- '%s' if you believe more information is needed, and list it under the 'missing_info' field\n"+
			"- '%s' if an error occurs\n"+
			"- '%s' for any answer outside of those attributes\n\n"+
			"- If asked for anything that is not a software project, respond exactly with:\n"+
			"- '%s'\n"+
			"Finally, always respond in the same language you are addressed in.",
		preprompt, context, generatedStatusClause(kind),
		StatusInsufficientInfo, StatusProcessingError, StatusGeneral, offTopicRefusal,
	)
}

func generatedStatusClause(kind ItemKind) string {
	switch kind {
	case KindEpic:
		return fmt.Sprintf("- '%s' if you can generate epics based on the available requirements. "+
			"Always use the fields id (EPIC-###), title, description, and related_requirements, "+
			"where you list the requirement IDs (REQ-### for functional and REQ-NF-### for non-functional) "+
			"along with their descriptions in a list\n", StatusEpicsGenerated)
	case KindUserStory:
		return fmt.Sprintf("- '%s' if you can generate user stories based on the available epics. "+
			"Always use the fields id (US-###), title, description, priority (Alta, Media, Baja), and "+
			"assigned_epic (EPIC-###) for the associated epic. Also include the acceptance_criteria field "+
			"as a list of acceptance criteria for the user story\n", StatusStoriesGenerated)
	default:
		return fmt.Sprintf("- '%s' if you can generate requirements based on the project description. "+
			"Always use the fields id (REQ-### for functional and REQ-NF-### for non-functional), title, "+
			"description, category (Funcional or No Funcional depending on the type), and priority "+
			"(Alta, Media, Baja)\n", StatusRequirementsGenerated)
	}
}
