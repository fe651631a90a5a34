package terminology

// labNames maps registry keys to EHR display names. Lookup by text walks
// this list in order, so earlier entries win on shared aliases.
var labNames = []LabName{
	{Key: "SYSTOLIC_BP", Primary: "Systolic Blood Pressure", Aliases: []string{"SBP", "Systolic BP"}},
	{Key: "DIASTOLIC_BP", Primary: "Diastolic Blood Pressure", Aliases: []string{"DBP", "Diastolic BP"}},
	{Key: "BP_PANEL", Primary: "Blood Pressure Panel", Aliases: []string{"BP"}},
	{Key: "HEART_RATE", Primary: "Heart Rate", Aliases: []string{"Pulse", "HR"}},
	{Key: "RESPIRATORY_RATE", Primary: "Respiratory Rate", Aliases: []string{"RR"}},
	{Key: "TEMPERATURE", Primary: "Temperature", Aliases: []string{"Temp", "Body Temp"}},
	{Key: "OXYGEN_SATURATION", Primary: "SpO2", Aliases: []string{"O2 Sat", "Pulse Ox"}},
	{Key: "OXYGEN_SATURATION_ARTERIAL", Primary: "SaO2", Aliases: []string{"Arterial O2 Sat"}},
	{Key: "HEIGHT", Primary: "Height", Aliases: []string{"Body Height", "Stature"}},
	{Key: "WEIGHT", Primary: "Weight", Aliases: []string{"Body Weight"}},
	{Key: "BMI", Primary: "BMI", Aliases: []string{"Body Mass Index"}},
	{Key: "HEAD_CIRCUMFERENCE", Primary: "Head Circumference", Aliases: []string{"HC"}},
	{Key: "HEMOGLOBIN", Primary: "Hemoglobin", Aliases: []string{"Hgb", "Hb"}},
	{Key: "HEMATOCRIT", Primary: "Hematocrit", Aliases: []string{"Hct"}},
	{Key: "WBC", Primary: "WBC", Aliases: []string{"White Blood Count", "Leukocytes"}},
	{Key: "PLATELETS", Primary: "Platelets", Aliases: []string{"Plt", "Platelet Count"}},
	{Key: "PLATELETS_ALT", Primary: "Platelets (Blood)", Aliases: []string{"Plt"}},
	{Key: "EOSINOPHILS", Primary: "Eosinophils", Aliases: []string{"Eos"}},
	{Key: "SODIUM", Primary: "Sodium", Aliases: []string{"Na"}},
	{Key: "POTASSIUM", Primary: "Potassium", Aliases: []string{"K"}},
	{Key: "CHLORIDE", Primary: "Chloride", Aliases: []string{"Cl"}},
	{Key: "BICARBONATE", Primary: "Bicarbonate", Aliases: []string{"HCO3"}},
	{Key: "CO2", Primary: "CO2", Aliases: []string{"Carbon Dioxide"}},
	{Key: "BUN", Primary: "BUN", Aliases: []string{"Blood Urea Nitrogen"}},
	{Key: "BUN_ALT", Primary: "BUN"},
	{Key: "CREATININE", Primary: "Creatinine", Aliases: []string{"Cr", "Creat"}},
	{Key: "GLUCOSE", Primary: "Glucose", Aliases: []string{"Glu", "Blood Sugar"}},
	{Key: "CALCIUM", Primary: "Calcium", Aliases: []string{"Ca"}},
	{Key: "MAGNESIUM", Primary: "Magnesium", Aliases: []string{"Mg"}},
	{Key: "PHOSPHATE", Primary: "Phosphate", Aliases: []string{"Phos", "PO4"}},
	{Key: "ALBUMIN", Primary: "Albumin", Aliases: []string{"Alb"}},
	{Key: "BILIRUBIN_TOTAL", Primary: "Total Bilirubin", Aliases: []string{"T-Bil", "Bili Total"}},
	{Key: "BILIRUBIN_DIRECT", Primary: "Direct Bilirubin", Aliases: []string{"D-Bil"}},
	{Key: "AST", Primary: "AST", Aliases: []string{"SGOT"}},
	{Key: "ALT", Primary: "ALT", Aliases: []string{"SGPT"}},
	{Key: "ALP", Primary: "ALP", Aliases: []string{"Alk Phos", "Alkaline Phosphatase"}},
	{Key: "GGT", Primary: "GGT"},
	{Key: "ALBUMIN_SERUM", Primary: "Albumin (Serum)"},
	{Key: "TOTAL_PROTEIN", Primary: "Total Protein", Aliases: []string{"TP"}},
	{Key: "INR", Primary: "INR", Aliases: []string{"International Normalized Ratio"}},
	{Key: "CHOLESTEROL_TOTAL", Primary: "Total Cholesterol", Aliases: []string{"Chol", "T-Chol"}},
	{Key: "HDL", Primary: "HDL", Aliases: []string{"HDL-C"}},
	{Key: "LDL", Primary: "LDL", Aliases: []string{"LDL-C"}},
	{Key: "TRIGLYCERIDES", Primary: "Triglycerides", Aliases: []string{"TG", "Trigs"}},
	{Key: "EGFR", Primary: "eGFR", Aliases: []string{"GFR"}},
	{Key: "URINE_POTASSIUM", Primary: "Urine Potassium", Aliases: []string{"U-K"}},
	{Key: "SERUM_OSMOLALITY", Primary: "Serum Osmolality"},
	{Key: "URINE_OSMOLALITY", Primary: "Urine Osmolality"},
	{Key: "URINE_SODIUM", Primary: "Urine Sodium", Aliases: []string{"U-Na"}},
	{Key: "URINE_CREATININE", Primary: "Urine Creatinine", Aliases: []string{"U-Cr"}},
	{Key: "CRP", Primary: "CRP", Aliases: []string{"C-Reactive Protein"}},
	{Key: "ESR", Primary: "ESR", Aliases: []string{"Sed Rate"}},
	{Key: "PROCALCITONIN", Primary: "Procalcitonin", Aliases: []string{"PCT"}},
	{Key: "TROPONIN_I", Primary: "Troponin I", Aliases: []string{"Trop I", "TnI"}},
	{Key: "TROPONIN_T", Primary: "Troponin T", Aliases: []string{"Trop T", "TnT"}},
	{Key: "TROPONIN_T_HIGH", Primary: "High Sensitivity Troponin T", Aliases: []string{"hs-TnT"}},
	{Key: "TROPONIN_I_HIGH", Primary: "High Sensitivity Troponin I", Aliases: []string{"hs-TnI"}},
	{Key: "TROPONIN_ALT", Primary: "Troponin"},
	{Key: "BNP", Primary: "BNP"},
	{Key: "NT_PRO_BNP", Primary: "NT-proBNP"},
	{Key: "PT", Primary: "PT", Aliases: []string{"Prothrombin Time"}},
	{Key: "PTT", Primary: "PTT", Aliases: []string{"aPTT"}},
	{Key: "INR_COAG", Primary: "INR (Coag)"},
	{Key: "FIBRINOGEN", Primary: "Fibrinogen", Aliases: []string{"Fib"}},
	{Key: "D_DIMER", Primary: "D-Dimer"},
	{Key: "PH", Primary: "pH"},
	{Key: "PCO2", Primary: "pCO2"},
	{Key: "PO2", Primary: "pO2"},
	{Key: "PaO2_FiO2", Primary: "PaO2/FiO2 Ratio", Aliases: []string{"P/F Ratio"}},
	{Key: "HCO3", Primary: "HCO3", Aliases: []string{"Bicarb"}},
	{Key: "BASE_EXCESS", Primary: "Base Excess", Aliases: []string{"BE"}},
	{Key: "LACTATE", Primary: "Lactate", Aliases: []string{"Lac"}},
	{Key: "FIO2", Primary: "FiO2"},
	{Key: "QT_INTERVAL", Primary: "QT Interval", Aliases: []string{"QT"}},
	{Key: "LVEF", Primary: "LVEF", Aliases: []string{"Ejection Fraction", "EF", "Left Ventricular Ejection Fraction"}},
	{Key: "LVEF_2D", Primary: "LVEF (2D Echo)", Aliases: []string{"EF 2D"}},
	{Key: "PA_SYSTOLIC_PRESSURE", Primary: "PA Systolic Pressure", Aliases: []string{"PASP", "Pulmonary Artery Pressure"}},
	{Key: "PA_MEAN_PRESSURE", Primary: "PA Mean Pressure", Aliases: []string{"PAMP", "Mean PA Pressure"}},
	{Key: "HBA1C", Primary: "HbA1c", Aliases: []string{"A1c", "Glycated Hemoglobin"}},
	{Key: "TSH", Primary: "TSH"},
	{Key: "FREE_T4", Primary: "Free T4", Aliases: []string{"FT4"}},
	{Key: "CORTISOL", Primary: "Cortisol"},
	{Key: "URIC_ACID", Primary: "Uric Acid", Aliases: []string{"UA"}},
	{Key: "AMYLASE", Primary: "Amylase", Aliases: []string{"Amy"}},
	{Key: "LIPASE", Primary: "Lipase", Aliases: []string{"Lip"}},
	{Key: "LDH", Primary: "LDH"},
	{Key: "CULTURE", Primary: "Culture"},
	{Key: "ETHANOL", Primary: "Ethanol", Aliases: []string{"ETOH", "Alcohol"}},
	{Key: "FERRITIN", Primary: "Ferritin"},
	{Key: "VITAMIN_D", Primary: "Vitamin D", Aliases: []string{"Vit D", "25-OH Vit D"}},
	{Key: "CSF_GRAM_STAIN", Primary: "CSF Gram Stain", Aliases: []string{"Gram Stain CSF"}},
	{Key: "CSF_ANC", Primary: "CSF ANC", Aliases: []string{"CSF Neutrophils", "Cerebrospinal Fluid Neutrophils"}},
	{Key: "CSF_PROTEIN", Primary: "CSF Protein", Aliases: []string{"Cerebrospinal Fluid Protein"}},
	{Key: "NEUTROPHILS_ABSOLUTE", Primary: "Absolute Neutrophil Count", Aliases: []string{"ANC", "Neutrophils"}},
	{Key: "URINE_UREA_NITROGEN", Primary: "Urine Urea Nitrogen", Aliases: []string{"UUN", "Urine Urea"}},
	{Key: "GCS", Primary: "GCS", Aliases: []string{"Glasgow Coma Scale"}},
	{Key: "PAIN_SCORE", Primary: "Pain Score"},
	{Key: "APGAR_1MIN", Primary: "Apgar 1 min"},
	{Key: "APGAR_5MIN", Primary: "Apgar 5 min"},
	{Key: "SMOKING_STATUS", Primary: "Smoking Status"},
	{Key: "UREA", Primary: "Urea"},
	{Key: "BLOOD_TYPE", Primary: "Blood Type", Aliases: []string{"ABO/Rh"}},
	{Key: "RH_FACTOR", Primary: "Rh Factor"},
}
