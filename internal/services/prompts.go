package services

// --- Analysis Prompt ---
const AnalysisPrompt = `Analyze these financial documents. Return ONLY valid JSON:

{
    "company_name": "exact name",
    "balance_sheet_date": "DD/MM/YYYY",
    "fiscal_year": "YYYY",
    "document_pages": 10,
    "contains_stato_patrimoniale": true,
    "contains_conto_economico": true,
    "contains_nota_integrativa": true,
    "currency": "EUR",
    "document_quality": "clear"
}`

// --- Extraction Prompt ---
// The document summary from the analysis phase is inserted after "Info: ".
const extractionPromptHead = `Extract ALL financial data from documents. Info: `

const extractionPromptSchema = `

Return ONLY valid JSON (no markdown):

{
    "metadata": {
        "company_name": "",
        "balance_sheet_date": "",
        "fiscal_year": ""
    },
    "stato_patrimoniale_attivo": {
        "A_crediti_soci": {"value": 0, "details": {}},
        "B_immobilizzazioni": {
            "I_immateriali": {"items": {}, "totale": 0},
            "II_materiali": {"costo_storico": 0, "fondo_ammortamento": 0, "valore_netto": 0, "items": {}},
            "III_finanziarie": {"items": {}, "totale": 0},
            "totale_immobilizzazioni": 0
        },
        "C_attivo_circolante": {
            "I_rimanenze": {"items": {}, "totale": 0},
            "II_crediti": {"entro_12_mesi": {}, "oltre_12_mesi": {}, "totale": 0},
            "III_attivita_finanziarie": {"items": {}, "totale": 0},
            "IV_disponibilita_liquide": {"items": {}, "totale": 0},
            "totale_attivo_circolante": 0
        },
        "D_ratei_risconti": {"items": {}, "totale": 0},
        "TOTALE_ATTIVO": 0
    },
    "stato_patrimoniale_passivo": {
        "A_patrimonio_netto": {
            "I_capitale_sociale": 0,
            "II_riserva_sovrapprezzo": 0,
            "III_riserve_rivalutazione": 0,
            "IV_riserva_legale": 0,
            "V_riserve_statutarie": 0,
            "VI_riserva_azioni_proprie": 0,
            "VII_altre_riserve": {},
            "VIII_utili_perdite_portati_a_nuovo": 0,
            "IX_utile_perdita_esercizio": 0,
            "totale_patrimonio_netto": 0
        },
        "B_fondi_rischi_oneri": {"items": {}, "totale": 0},
        "C_trattamento_fine_rapporto": 0,
        "D_debiti": {"entro_12_mesi": {}, "oltre_12_mesi": {}, "totale": 0},
        "E_ratei_risconti": {"items": {}, "totale": 0},
        "TOTALE_PASSIVO": 0
    },
    "conto_economico": {
        "A_valore_produzione": {
            "1_ricavi_vendite": 0,
            "2_variazioni_rimanenze": 0,
            "3_variazioni_lavori_in_corso": 0,
            "4_incrementi_immobilizzazioni": 0,
            "5_altri_ricavi": {},
            "totale_A": 0
        },
        "B_costi_produzione": {
            "6_materie_prime": 0,
            "7_servizi": 0,
            "8_godimento_beni_terzi": 0,
            "9_personale": {},
            "10_ammortamenti_svalutazioni": {},
            "11_variazioni_rimanenze": 0,
            "12_accantonamenti": 0,
            "13_altri_accantonamenti": 0,
            "14_oneri_diversi_gestione": 0,
            "totale_B": 0
        },
        "differenza_A_B": 0,
        "C_proventi_oneri_finanziari": {
            "15_proventi_partecipazioni": 0,
            "16_altri_proventi_finanziari": {},
            "17_interessi_oneri_finanziari": {},
            "17bis_utili_perdite_cambio": 0,
            "totale_C": 0
        },
        "D_rettifiche_valore": {
            "18_rivalutazioni": 0,
            "19_svalutazioni": 0,
            "totale_D": 0
        },
        "risultato_prima_imposte": 0,
        "20_imposte_reddito": {"correnti": 0, "differite": 0, "anticipate": 0, "totale": 0},
        "21_utile_perdita_esercizio": 0
    },
    "nota_integrativa": {
        "criteri_valutazione": "",
        "immobilizzazioni_immateriali": "",
        "immobilizzazioni_materiali": "",
        "immobilizzazioni_finanziarie": "",
        "rimanenze": "",
        "crediti": "",
        "debiti": "",
        "ratei_risconti": "",
        "patrimonio_netto": "",
        "fondi_rischi": "",
        "trattamento_fine_rapporto": "",
        "ricavi_costi": "",
        "imposte": "",
        "altre_informazioni": ""
    }
}

Extract exact numbers. Use 0 if not found. NO trailing commas.`

// --- Validation Prompt ---
const validationPromptHead = "Validate and correct calculations:\n\n"

const validationPromptTasks = `

TASKS:
1. Calculate missing subtotals
2. Verify TOTALE_ATTIVO = TOTALE_PASSIVO
3. Verify differenza_A_B = totale_A - totale_B
4. Verify risultato_prima_imposte
5. Verify utile_perdita_esercizio

Return ONLY valid JSON:

{
    "is_balanced": true,
    "balance_difference": 0,
    "corrections_made": [],
    "corrected_data": {
        ...same structure...
    }
}

NO trailing commas. NO markdown.`

// --- Formatting Prompt ---
const formattingPromptHead = "Format as Italian balance sheet in PLAIN TEXT:\n\n"

const formattingPromptLayout = `

Structure:

BILANCIO D'ESERCIZIO AL [date]
[Company Name]

STATO PATRIMONIALE - ATTIVO

A) CREDITI VERSO SOCI: € X,XXX
B) IMMOBILIZZAZIONI
  I - Immobilizzazioni immateriali: € X,XXX
  II - Immobilizzazioni materiali
      Costo storico: € X,XXX
      Fondo ammortamento: € (X,XXX)
      Valore netto: € X,XXX
  III - Immobilizzazioni finanziarie: € X,XXX
  TOTALE IMMOBILIZZAZIONI (B): € X,XXX

C) ATTIVO CIRCOLANTE
  I - Rimanenze: € X,XXX
  II - Crediti (entro 12 mesi): € X,XXX
  III - Attività finanziarie: € X,XXX
  IV - Disponibilità liquide: € X,XXX
  TOTALE ATTIVO CIRCOLANTE (C): € X,XXX

D) RATEI E RISCONTI: € X,XXX

TOTALE ATTIVO: € X,XXX


STATO PATRIMONIALE - PASSIVO

A) PATRIMONIO NETTO
  I - Capitale sociale: € X,XXX
  IV - Riserva legale: € X,XXX
  VII - Altre riserve: € X,XXX
  VIII - Utili (perdite) portati a nuovo: € X,XXX
  IX - Utile (perdita) dell'esercizio: € X,XXX
  TOTALE PATRIMONIO NETTO (A): € X,XXX

B) FONDI PER RISCHI E ONERI: € X,XXX
C) TRATTAMENTO FINE RAPPORTO: € X,XXX
D) DEBITI (entro 12 mesi): € X,XXX
E) RATEI E RISCONTI: € X,XXX

TOTALE PASSIVO: € X,XXX


CONTO ECONOMICO

A) VALORE DELLA PRODUZIONE
   1) Ricavi delle vendite: € X,XXX
   5) Altri ricavi: € X,XXX
   TOTALE (A): € X,XXX

B) COSTI DELLA PRODUZIONE
   6) Materie prime: € X,XXX
   7) Servizi: € X,XXX
   9) Personale: € X,XXX
   10) Ammortamenti: € X,XXX
   14) Oneri diversi: € X,XXX
   TOTALE (B): € X,XXX

DIFFERENZA (A-B): € X,XXX

C) PROVENTI E ONERI FINANZIARI: € X,XXX
D) RETTIFICHE DI VALORE: € X,XXX

RISULTATO PRIMA DELLE IMPOSTE: € X,XXX
20) Imposte: € X,XXX

UTILE (PERDITA) DELL'ESERCIZIO: € X,XXX


NOTA INTEGRATIVA

[Paragraphs from nota_integrativa]

RULES:
- Plain text, NO markdown
- € before amounts
- Comma separator (€ 10,000)
- Negatives: € (X,XXX)
- 2-space indent
- Skip zeros
- "entro 12 mesi" for short-term`

func extractionPrompt(summaryJSON string) string {
	return extractionPromptHead + summaryJSON + extractionPromptSchema
}

func validationPrompt(dataJSON string) string {
	return validationPromptHead + dataJSON + validationPromptTasks
}

func formattingPrompt(dataJSON string) string {
	return formattingPromptHead + dataJSON + formattingPromptLayout
}
