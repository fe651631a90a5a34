package terminology

// loincRegistry is ordered: when several keys share a code, the first one names it.
var loincRegistry = []LOINCCode{
	{Key: "SYSTOLIC_BP", Code: "8480-6", Display: "Systolic blood pressure", Category: "vital-signs"},
	{Key: "DIASTOLIC_BP", Code: "8462-4", Display: "Diastolic blood pressure", Category: "vital-signs"},
	{Key: "BP_PANEL", Code: "85354-9,55284-4", Display: "Blood pressure panel", Category: "vital-signs"},
	{Key: "HEART_RATE", Code: "8867-4", Display: "Heart rate", Category: "vital-signs"},
	{Key: "RESPIRATORY_RATE", Code: "9279-1", Display: "Respiratory rate", Category: "vital-signs"},
	{Key: "TEMPERATURE", Code: "8310-5,8331-1", Display: "Body temperature (and Oral)", Category: "vital-signs"},
	{Key: "OXYGEN_SATURATION", Code: "59408-5", Display: "Oxygen saturation (Pulse Ox)", Category: "vital-signs"},
	{Key: "OXYGEN_SATURATION_ARTERIAL", Code: "2708-6", Display: "Oxygen saturation (Arterial)", Category: "vital-signs"},
	{Key: "HEIGHT", Code: "8302-2", Display: "Body height", Category: "body-measurements"},
	{Key: "WEIGHT", Code: "29463-7", Display: "Body weight", Category: "body-measurements"},
	{Key: "BMI", Code: "39156-5", Display: "Body mass index", Category: "body-measurements"},
	{Key: "HEAD_CIRCUMFERENCE", Code: "8287-5", Display: "Head circumference", Category: "body-measurements"},
	{Key: "HEMOGLOBIN", Code: "718-7", Display: "Hemoglobin", Category: "hematology"},
	{Key: "HEMATOCRIT", Code: "4544-3", Display: "Hematocrit", Category: "hematology"},
	{Key: "WBC", Code: "6690-2", Display: "White blood cells", Category: "hematology"},
	{Key: "PLATELETS", Code: "777-3", Display: "Platelets (automated count)", Category: "hematology"},
	{Key: "PLATELET_COUNT", Code: "777-3", Display: "Alias for Platelets", Category: "hematology"},
	{Key: "PLATELETS_ALT", Code: "26515-7", Display: "Platelets (in blood)", Category: "hematology"},
	{Key: "EOSINOPHILS", Code: "26478-8", Display: "Eosinophils", Category: "hematology"},
	{Key: "SODIUM", Code: "2951-2", Display: "Sodium", Category: "chemistry"},
	{Key: "POTASSIUM", Code: "2823-3", Display: "Potassium", Category: "chemistry"},
	{Key: "CHLORIDE", Code: "2075-0", Display: "Chloride", Category: "chemistry"},
	{Key: "BICARBONATE", Code: "1963-8", Display: "Bicarbonate (serum)", Category: "chemistry"},
	{Key: "CO2", Code: "2028-9", Display: "Carbon dioxide", Category: "chemistry"},
	{Key: "BUN", Code: "3094-0", Display: "Blood urea nitrogen", Category: "chemistry"},
	{Key: "BUN_ALT", Code: "6299-8", Display: "BUN (alternative code)", Category: "chemistry"},
	{Key: "CREATININE", Code: "2160-0", Display: "Creatinine", Category: "chemistry"},
	{Key: "GLUCOSE", Code: "2345-7", Display: "Glucose", Category: "chemistry"},
	{Key: "CALCIUM", Code: "17861-6", Display: "Calcium", Category: "chemistry"},
	{Key: "MAGNESIUM", Code: "2601-3", Display: "Magnesium", Category: "chemistry"},
	{Key: "PHOSPHATE", Code: "2777-1", Display: "Phosphate", Category: "chemistry"},
	{Key: "ALBUMIN", Code: "1751-7", Display: "Albumin", Category: "chemistry"},
	{Key: "INSULIN_LEVEL", Code: "20448-7", Display: "Fasting Insulin", Category: "specialized"},
	{Key: "FASTING_GLUCOSE", Code: "2339-0", Display: "Fasting Glucose", Category: "specialized"},
	{Key: "BILIRUBIN_TOTAL", Code: "1975-2", Display: "Bilirubin total", Category: "liver"},
	{Key: "BILIRUBIN_DIRECT", Code: "1968-7", Display: "Bilirubin direct", Category: "liver"},
	{Key: "AST", Code: "1920-8", Display: "AST (SGOT)", Category: "liver"},
	{Key: "ALT", Code: "1742-6", Display: "ALT (SGPT)", Category: "liver"},
	{Key: "ALP", Code: "6768-6", Display: "Alkaline phosphatase", Category: "liver"},
	{Key: "GGT", Code: "2324-2", Display: "Gamma glutamyl transferase", Category: "liver"},
	{Key: "ALBUMIN_SERUM", Code: "1751-7", Display: "Albumin serum", Category: "liver"},
	{Key: "TOTAL_PROTEIN", Code: "2885-2", Display: "Total protein", Category: "liver"},
	{Key: "INR", Code: "6301-6", Display: "INR", Category: "liver"},
	{Key: "CHOLESTEROL_TOTAL", Code: "2093-3", Display: "Cholesterol total", Category: "lipid"},
	{Key: "HDL", Code: "2085-9", Display: "HDL cholesterol", Category: "lipid"},
	{Key: "LDL", Code: "2089-1", Display: "LDL cholesterol", Category: "lipid"},
	{Key: "TRIGLYCERIDES", Code: "2571-8", Display: "Triglycerides", Category: "lipid"},
	{Key: "EGFR", Code: "33914-3", Display: "eGFR", Category: "renal"},
	{Key: "URINE_POTASSIUM", Code: "2829-0", Display: "Urine potassium", Category: "renal"},
	{Key: "SERUM_OSMOLALITY", Code: "2695-6", Display: "Serum osmolality", Category: "renal"},
	{Key: "URINE_OSMOLALITY", Code: "2697-2", Display: "Urine osmolality", Category: "renal"},
	{Key: "URINE_SODIUM", Code: "2828-2,2955-3", Display: "Urine sodium", Category: "renal"},
	{Key: "URINE_CREATININE", Code: "2161-8", Display: "Urine creatinine", Category: "renal"},
	{Key: "URINE_UREA_NITROGEN", Code: "3095-7", Display: "Urine Urea Nitrogen", Category: "renal"},
	{Key: "CRP", Code: "1988-5", Display: "C-reactive protein", Category: "inflammatory"},
	{Key: "ESR", Code: "4537-7", Display: "Erythrocyte sedimentation rate", Category: "inflammatory"},
	{Key: "PROCALCITONIN", Code: "33959-8", Display: "Procalcitonin", Category: "inflammatory"},
	{Key: "TROPONIN_I", Code: "10839-9", Display: "Troponin I", Category: "cardiac-markers"},
	{Key: "TROPONIN_T", Code: "6598-7", Display: "Troponin T", Category: "cardiac-markers"},
	{Key: "TROPONIN_T_HIGH", Code: "30239-8", Display: "Troponin T high sensitivity", Category: "cardiac-markers"},
	{Key: "TROPONIN_I_HIGH", Code: "15056-5", Display: "Troponin I high sensitivity", Category: "cardiac-markers"},
	{Key: "TROPONIN_ALT", Code: "32195-5", Display: "Troponin (alternative)", Category: "cardiac-markers"},
	{Key: "BNP", Code: "30934-4", Display: "BNP", Category: "cardiac-markers"},
	{Key: "NT_PRO_BNP", Code: "33762-6", Display: "NT-proBNP", Category: "cardiac-markers"},
	{Key: "PT", Code: "5902-2", Display: "Prothrombin time", Category: "coagulation"},
	{Key: "PTT", Code: "14979-9", Display: "Partial thromboplastin time", Category: "coagulation"},
	{Key: "INR_COAG", Code: "34714-6", Display: "INR from coagulation panel", Category: "coagulation"},
	{Key: "FIBRINOGEN", Code: "3255-7", Display: "Fibrinogen", Category: "coagulation"},
	{Key: "D_DIMER", Code: "48065-7", Display: "D-dimer", Category: "coagulation"},
	{Key: "PH", Code: "2744-1", Display: "pH", Category: "blood-gas"},
	{Key: "PCO2", Code: "2019-8", Display: "pCO2", Category: "blood-gas"},
	{Key: "PO2", Code: "2703-7", Display: "pO2", Category: "blood-gas"},
	{Key: "PaO2_FiO2", Code: "50984-4", Display: "PaO2/FiO2 ratio", Category: "blood-gas"},
	{Key: "HCO3", Code: "1960-4", Display: "Bicarbonate", Category: "blood-gas"},
	{Key: "BASE_EXCESS", Code: "1925-7", Display: "Base excess", Category: "blood-gas"},
	{Key: "LACTATE", Code: "2524-7", Display: "Lactate", Category: "blood-gas"},
	{Key: "FIO2", Code: "3150-0", Display: "Inhaled oxygen concentration", Category: "blood-gas"},
	{Key: "QT_INTERVAL", Code: "8633-1", Display: "QT interval (raw)", Category: "cardiac-measurements"},
	{Key: "LVEF", Code: "10230-1", Display: "Left ventricular ejection fraction", Category: "cardiac-measurements"},
	{Key: "LVEF_2D", Code: "18043-0", Display: "LVEF by 2D Echo", Category: "cardiac-measurements"},
	{Key: "PA_SYSTOLIC_PRESSURE", Code: "8480-6", Display: "Pulmonary artery systolic pressure", Category: "cardiac-measurements"},
	{Key: "PA_MEAN_PRESSURE", Code: "8414-5", Display: "Pulmonary artery mean pressure", Category: "cardiac-measurements"},
	{Key: "HBA1C", Code: "4548-4", Display: "Hemoglobin A1c", Category: "other-lab"},
	{Key: "TSH", Code: "3016-3", Display: "Thyroid stimulating hormone", Category: "other-lab"},
	{Key: "FREE_T4", Code: "3053-6", Display: "Free T4", Category: "other-lab"},
	{Key: "CORTISOL", Code: "2143-6", Display: "Cortisol", Category: "other-lab"},
	{Key: "URIC_ACID", Code: "3084-1", Display: "Uric acid", Category: "other-lab"},
	{Key: "AMYLASE", Code: "1798-8", Display: "Amylase", Category: "other-lab"},
	{Key: "LIPASE", Code: "3040-3", Display: "Lipase", Category: "other-lab"},
	{Key: "LDH", Code: "2532-0", Display: "Lactate dehydrogenase", Category: "other-lab"},
	{Key: "CULTURE", Code: "630-4", Display: "Bacteria identified in Unspecified specimen by Culture", Category: "other-lab"},
	{Key: "ETHANOL", Code: "49765-1", Display: "Ethanol concentration", Category: "other-lab"},
	{Key: "FERRITIN", Code: "2276-4", Display: "Ferritin", Category: "other-lab"},
	{Key: "VITAMIN_D", Code: "1989-3", Display: "Vitamin D 25-hydroxy", Category: "other-lab"},
	{Key: "CSF_GRAM_STAIN", Code: "664-3", Display: "Microscopic observation [Identifier] in Cerebrospinal fluid by Gram stain", Category: "other-lab"},
	{Key: "CSF_ANC", Code: "26485-3", Display: "Neutrophils [#/volume] in Cerebrospinal fluid", Category: "other-lab"},
	{Key: "CSF_PROTEIN", Code: "3137-7", Display: "Protein [Mass/volume] in Cerebrospinal fluid", Category: "other-lab"},
	{Key: "NEUTROPHILS_ABSOLUTE", Code: "751-8", Display: "Neutrophils [#/volume] in Blood", Category: "other-lab"},
	{Key: "GCS", Code: "9269-2", Display: "Glasgow Coma Scale", Category: "assessment"},
	{Key: "PAIN_SCORE", Code: "72514-3", Display: "Pain severity", Category: "assessment"},
	{Key: "APGAR_1MIN", Code: "9272-6", Display: "Apgar score 1 minute", Category: "assessment"},
	{Key: "APGAR_5MIN", Code: "9274-2", Display: "Apgar score 5 minute", Category: "assessment"},
	{Key: "SMOKING_STATUS", Code: "72166-2", Display: "Smoking status", Category: "assessment"},
	{Key: "UREA", Code: "3094-0", Display: "Urea", Category: "other"},
	{Key: "BLOOD_TYPE", Code: "882-1", Display: "Blood type", Category: "other"},
	{Key: "RH_FACTOR", Code: "10331-7", Display: "Rh factor", Category: "other"},
	{Key: "ASA_PHYSICAL_STATUS", Code: "11368-0", Display: "ASA Physical Status Class", Category: "other"},
}

var snomedRegistry = []SNOMEDCode{
	{Key: "HYPERTENSION", Code: "38341003", Display: "Hypertension"},
	{Key: "CORONARY_ARTERY_DISEASE", Code: "53741008", Display: "Coronary Artery Disease"},
	{Key: "MYOCARDIAL_INFARCTION", Code: "22298006", Display: "Myocardial Infarction"},
	{Key: "HEART_FAILURE", Code: "84114007", Display: "Heart Failure"},
	{Key: "CONGESTIVE_HEART_FAILURE", Code: "42343007", Display: "Congestive Heart Failure"},
	{Key: "ATRIAL_FIBRILLATION", Code: "49436004", Display: "Atrial Fibrillation"},
	{Key: "STROKE", Code: "230690007", Display: "Stroke"},
	{Key: "TIA", Code: "266257000", Display: "Tia"},
	{Key: "PERIPHERAL_ARTERY_DISEASE", Code: "399957001", Display: "Peripheral Artery Disease"},
	{Key: "CARDIOGENIC_SHOCK", Code: "27885002", Display: "Cardiogenic Shock"},
	{Key: "ACUTE_CORONARY_SYNDROME", Code: "394659003", Display: "Acute Coronary Syndrome"},
	{Key: "ENDOCARDITIS", Code: "56819008", Display: "Endocarditis"},
	{Key: "PULMONARY_HYPERTENSION", Code: "70995007", Display: "Pulmonary Hypertension"},
	{Key: "PREVIOUS_CARDIAC_SURGERY", Code: "232717009", Display: "Previous Cardiac Surgery"},
	{Key: "DEEP_VEIN_THROMBOSIS", Code: "128053003", Display: "Deep Vein Thrombosis"},
	{Key: "CARDIAC_ARREST", Code: "410429000", Display: "Cardiac Arrest"},
	{Key: "COPD", Code: "13645005", Display: "Copd"},
	{Key: "ASTHMA", Code: "195967001", Display: "Asthma"},
	{Key: "PNEUMONIA", Code: "233604007", Display: "Pneumonia"},
	{Key: "PULMONARY_EMBOLISM", Code: "59282003", Display: "Pulmonary Embolism"},
	{Key: "RESPIRATORY_FAILURE", Code: "409622000", Display: "Respiratory Failure"},
	{Key: "SLEEP_APNEA", Code: "78275009", Display: "Sleep Apnea"},
	{Key: "DIABETES_MELLITUS", Code: "73211009", Display: "Diabetes Mellitus"},
	{Key: "DIABETES_TYPE_1", Code: "46635009", Display: "Diabetes Type 1"},
	{Key: "DIABETES_TYPE_2", Code: "44054006", Display: "Diabetes Type 2"},
	{Key: "HYPERLIPIDEMIA", Code: "55822004", Display: "Hyperlipidemia"},
	{Key: "OBESITY", Code: "414915002", Display: "Obesity"},
	{Key: "HYPOTHYROIDISM", Code: "40930008", Display: "Hypothyroidism"},
	{Key: "HYPERTHYROIDISM", Code: "34486009", Display: "Hyperthyroidism"},
	{Key: "CHRONIC_KIDNEY_DISEASE", Code: "709044004", Display: "Chronic Kidney Disease"},
	{Key: "ACUTE_KIDNEY_INJURY", Code: "14669001", Display: "Acute Kidney Injury"},
	{Key: "END_STAGE_RENAL_DISEASE", Code: "46177005", Display: "End Stage Renal Disease"},
	{Key: "DIALYSIS_DEPENDENT", Code: "429451001", Display: "Dialysis Dependent"},
	{Key: "CIRRHOSIS", Code: "19943007", Display: "Cirrhosis"},
	{Key: "LIVER_FAILURE", Code: "59927004", Display: "Liver Failure"},
	{Key: "HEPATITIS", Code: "40468003", Display: "Hepatitis"},
	{Key: "ALCOHOLIC_LIVER_DISEASE", Code: "41309000", Display: "Alcoholic Liver Disease"},
	{Key: "ANEMIA", Code: "271737000", Display: "Anemia"},
	{Key: "BLEEDING_DISORDER", Code: "64779008", Display: "Bleeding Disorder"},
	{Key: "THROMBOCYTOPENIA", Code: "415116008", Display: "Thrombocytopenia"},
	{Key: "ANTICOAGULATION_THERAPY", Code: "281789004", Display: "Anticoagulation Therapy"},
	{Key: "DEMENTIA", Code: "52448006", Display: "Dementia"},
	{Key: "EPILEPSY", Code: "84757009", Display: "Epilepsy"},
	{Key: "PARKINSONS_DISEASE", Code: "49049000", Display: "Parkinsons Disease"},
	{Key: "MULTIPLE_SCLEROSIS", Code: "24700007", Display: "Multiple Sclerosis"},
	{Key: "PARALYSIS", Code: "166001", Display: "Paralysis"},
	{Key: "MALIGNANCY", Code: "363346000", Display: "Malignancy"},
	{Key: "METASTATIC_CANCER", Code: "94225005", Display: "Metastatic Cancer"},
	{Key: "LEUKEMIA", Code: "93143009", Display: "Leukemia"},
	{Key: "LYMPHOMA", Code: "118600007", Display: "Lymphoma"},
	{Key: "SEPSIS", Code: "91302008", Display: "Sepsis"},
	{Key: "HIV", Code: "86406008", Display: "Hiv"},
	{Key: "TUBERCULOSIS", Code: "56717001", Display: "Tuberculosis"},
	{Key: "COVID_19", Code: "840539006", Display: "Covid 19"},
	{Key: "SMOKING", Code: "77176002", Display: "Smoking"},
	{Key: "ALCOHOL_ABUSE", Code: "7200002", Display: "Alcohol Abuse"},
	{Key: "DRUG_ABUSE", Code: "66214007", Display: "Drug Abuse"},
	{Key: "PACEMAKER", Code: "14106009", Display: "Pacemaker"},
	{Key: "CABG", Code: "232717009", Display: "Cabg"},
	{Key: "PCI", Code: "415070008", Display: "Pci"},
	{Key: "VALVE_SURGERY", Code: "119978007", Display: "Valve Surgery"},
	{Key: "TRANSPLANT", Code: "77465005", Display: "Transplant"},
	{Key: "FAMILY_HISTORY_CAD", Code: "266897004", Display: "Family History Cad"},
	{Key: "PREVIOUS_MI", Code: "399211009", Display: "Previous Mi"},
	{Key: "PREVIOUS_STROKE", Code: "161505003", Display: "Previous Stroke"},
	{Key: "PREVIOUS_BLEEDING", Code: "131148009", Display: "Previous Bleeding"},
	{Key: "ISCHEMIC_HEART_DISEASE", Code: "414545008", Display: "Ischemic Heart Disease"},
	{Key: "FRACTURE", Code: "125605004", Display: "Fracture"},
	{Key: "HEMOPTYSIS", Code: "66857006", Display: "Hemoptysis"},
	{Key: "CONNECTIVE_TISSUE_DISEASE", Code: "105969002", Display: "Connective Tissue Disease"},
	{Key: "PEPTIC_ULCER_DISEASE", Code: "13200003", Display: "Peptic Ulcer Disease"},
	{Key: "HEMIPLEGIA", Code: "50582007", Display: "Hemiplegia"},
	{Key: "AIDS", Code: "62479008", Display: "Aids"},
	{Key: "SEIZURE", Code: "91175000", Display: "Seizure"},
	{Key: "POSITIVE_RESULT", Code: "260348003", Display: "Positive Result"},
	{Key: "HISTORY_OF_VTE", Code: "451574005", Display: "History Of Vte"},
}

var rxnormRegistry = []RxNormCode{
	{Key: "ASPIRIN", Code: "1191", Display: "Aspirin"},
	{Key: "CLOPIDOGREL", Code: "32968", Display: "Clopidogrel"},
	{Key: "TICAGRELOR", Code: "1116632", Display: "Ticagrelor"},
	{Key: "PRASUGREL", Code: "855812", Display: "Prasugrel"},
	{Key: "WARFARIN", Code: "11289", Display: "Warfarin"},
	{Key: "HEPARIN", Code: "5224", Display: "Heparin"},
	{Key: "ENOXAPARIN", Code: "67108", Display: "Enoxaparin"},
	{Key: "RIVAROXABAN", Code: "1114195", Display: "Rivaroxaban"},
	{Key: "APIXABAN", Code: "1364430", Display: "Apixaban"},
	{Key: "DABIGATRAN", Code: "1037042", Display: "Dabigatran"},
	{Key: "EDOXABAN", Code: "1599538", Display: "Edoxaban"},
	{Key: "INSULIN", Code: "274783", Display: "Insulin"},
	{Key: "IBUPROFEN", Code: "5640", Display: "Ibuprofen"},
	{Key: "NAPROXEN", Code: "7258", Display: "Naproxen"},
	{Key: "DICLOFENAC", Code: "3355", Display: "Diclofenac"},
	{Key: "KETOROLAC", Code: "6130", Display: "Ketorolac"},
	{Key: "INDOMETHACIN", Code: "5775", Display: "Indomethacin"},
	{Key: "MELOXICAM", Code: "6835", Display: "Meloxicam"},
	{Key: "CELECOXIB", Code: "202472", Display: "Celecoxib"},
	{Key: "PREDNISONE", Code: "8640", Display: "Prednisone"},
	{Key: "PREDNISOLONE", Code: "8638", Display: "Prednisolone"},
	{Key: "METHYLPREDNISOLONE", Code: "6902", Display: "Methylprednisolone"},
	{Key: "DEXAMETHASONE", Code: "3264", Display: "Dexamethasone"},
	{Key: "HYDROCORTISONE", Code: "5492", Display: "Hydrocortisone"},
	{Key: "TRIAMCINOLONE", Code: "10759", Display: "Triamcinolone"},
	{Key: "P2Y12_INHIBITOR", Code: "32968,1116632,855812", Display: "P2Y12 Inhibitor"},
	{Key: "METOPROLOL", Code: "6918", Display: "Metoprolol"},
	{Key: "CARVEDILOL", Code: "20352", Display: "Carvedilol"},
	{Key: "BISOPROLOL", Code: "16154", Display: "Bisoprolol"},
	{Key: "ATENOLOL", Code: "1202", Display: "Atenolol"},
	{Key: "PROPRANOLOL", Code: "8787", Display: "Propranolol"},
	{Key: "LABETALOL", Code: "6221", Display: "Labetalol"},
	{Key: "LISINOPRIL", Code: "29046", Display: "Lisinopril"},
	{Key: "ENALAPRIL", Code: "3827", Display: "Enalapril"},
	{Key: "RAMIPRIL", Code: "35296", Display: "Ramipril"},
	{Key: "CAPTOPRIL", Code: "1998", Display: "Captopril"},
	{Key: "BENAZEPRIL", Code: "1886", Display: "Benazepril"},
	{Key: "LOSARTAN", Code: "52175", Display: "Losartan"},
	{Key: "VALSARTAN", Code: "69749", Display: "Valsartan"},
	{Key: "CANDESARTAN", Code: "83367", Display: "Candesartan"},
	{Key: "IRBESARTAN", Code: "83515", Display: "Irbesartan"},
	{Key: "OLMESARTAN", Code: "259255", Display: "Olmesartan"},
}
